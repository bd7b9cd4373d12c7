package llm

import "encoding/base64"

// ExtractionInstructionV1 is the versioned extraction instruction. The key
// names are load-bearing: the parser normalizes onto exactly these seven, so
// any revision must bump the version and keep parser and schema in step.
const ExtractionInstructionV1 = "You are given a business card image.\n" +
	"Extract information and return STRICT JSON ONLY, with exactly these keys:\n" +
	"{\n" +
	"  \"Company Name\": string|null,\n" +
	"  \"Name\": string|null,\n" +
	"  \"Title\": string|null,\n" +
	"  \"Phone Number\": string|null,\n" +
	"  \"Email Address\": string|null,\n" +
	"  \"Company Address\": string|null,\n" +
	"  \"Company Website\": string|null\n" +
	"}\n" +
	"Rules:\n" +
	"- No markdown, no code blocks, no explanation.\n" +
	"- If missing, use null.\n"

// DataURL encodes image bytes as a self-describing data URI.
func DataURL(data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// BuildChatRequest packages one image plus the extraction instruction into a
// single user turn.
func BuildChatRequest(imageBytes []byte, contentType string) ChatRequest {
	return ChatRequest{
		Messages: []ChatMessage{
			{
				Role: "user",
				Content: []ContentPart{
					{
						Type:     "image_url",
						ImageURL: &ImageURL{URL: DataURL(imageBytes, contentType)},
					},
					{
						Type: "text",
						Text: ExtractionInstructionV1,
					},
				},
			},
		},
	}
}
