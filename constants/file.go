package constants

import "strings"

// Image content types accepted by the vision endpoint.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeBMP  = "image/bmp"
)

// AllowedExtensions holds the file extensions accepted for namecard ingestion.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
}

// Export filenames kept stable for downstream tooling.
const (
	ExportCSVName  = "namecards_extracted.csv"
	ExportJSONName = "namecards_extracted.json"
	ExportXLSXName = "namecards_extracted.xlsx"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DetectContentType maps a filename to an image content type by extension.
// Unrecognized or missing extensions fall back to image/jpeg, which most
// vision endpoints accept; callers can convert upstream if needed.
func DetectContentType(filename string) string {
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = NormalizeExt(filename[i:])
	}
	switch ext {
	case "jpg", "jpeg":
		return ContentTypeJPEG
	case "png":
		return ContentTypePNG
	case "bmp":
		return ContentTypeBMP
	default:
		return ContentTypeJPEG
	}
}

// IsAllowedExtension reports whether the filename carries an ingestible extension.
func IsAllowedExtension(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	_, ok := AllowedExtensions[NormalizeExt(filename[i:])]
	return ok
}
