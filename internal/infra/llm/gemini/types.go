package gemini

import "strings"

// Type enumerates OpenAPI schema types understood by responseSchema.
type Type string

const (
	TypeObject Type = "OBJECT"
	TypeArray  Type = "ARRAY"
	TypeString Type = "STRING"
)

// Schema is the subset of the Gemini response schema the service relies on.
type Schema struct {
	Type             Type               `json:"type"`
	Description      string             `json:"description,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Required         []string           `json:"required,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	// int64 values are encoded as strings by the API.
	MinItems string `json:"minItems,omitempty"`
	MaxItems string `json:"maxItems,omitempty"`
}

// Blob carries base64 encoded inline media.
type Blob struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Part is a single piece of content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content groups parts produced by one role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// ImageConfig controls image output.
type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// GenerationConfig mirrors generationConfig.
type GenerationConfig struct {
	Temperature      *float32     `json:"temperature,omitempty"`
	CandidateCount   int          `json:"candidateCount,omitempty"`
	ResponseMimeType string       `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema      `json:"responseSchema,omitempty"`
	ImageConfig      *ImageConfig `json:"imageConfig,omitempty"`
}

// GenerateContentRequest is the payload of models/{model}:generateContent.
type GenerateContentRequest struct {
	Model             string            `json:"-"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// PromptFeedback explains prompt level blocking.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata reports token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateContentResponse is the decoded generateContent reply.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (r GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// TextPart is shorthand for a text only part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// Float32 returns a pointer for optional config values.
func Float32(v float32) *float32 {
	return &v
}
