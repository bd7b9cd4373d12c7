package llm

import "context"

// ContactFields is the normalized shape we want from the model. JSON tags are
// the canonical seven keys the extraction instruction demands; the parser
// maps the model's alternate vocabulary onto these before decoding.
type ContactFields struct {
	CompanyName    *string `json:"Company Name"`
	Name           *string `json:"Name"`
	Title          *string `json:"Title"`
	PhoneNumber    *string `json:"Phone Number"`
	EmailAddress   *string `json:"Email Address"`
	CompanyAddress *string `json:"Company Address"`
	CompanyWebsite *string `json:"Company Website"`
}

// ChatRequest is a single-turn chat payload for the vision inference service.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is either an inline image reference or an instruction text.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// Inferencer is the interface the batch pipeline depends on: one image
// request in, the model's raw text completion out.
type Inferencer interface {
	Infer(ctx context.Context, req ChatRequest) (string, error)
}
