package constants

import "testing"

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"card.jpg", ContentTypeJPEG},
		{"card.jpeg", ContentTypeJPEG},
		{"card.JPG", ContentTypeJPEG},
		{"card.JpEg", ContentTypeJPEG},
		{"card.png", ContentTypePNG},
		{"card.PNG", ContentTypePNG},
		{"card.bmp", ContentTypeBMP},
		{"card.BMP", ContentTypeBMP},
		{"card.gif", ContentTypeJPEG},
		{"card.pdf", ContentTypeJPEG},
		{"card", ContentTypeJPEG},
		{"", ContentTypeJPEG},
		{"archive.tar.png", ContentTypePNG},
		{".png", ContentTypePNG},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectContentType(tt.filename); got != tt.want {
				t.Errorf("DetectContentType(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIsAllowedExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"card.jpg", true},
		{"card.JPEG", true},
		{"card.png", true},
		{"card.bmp", true},
		{"card.gif", false},
		{"card.pdf", false},
		{"card", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAllowedExtension(tt.filename); got != tt.want {
			t.Errorf("IsAllowedExtension(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}
