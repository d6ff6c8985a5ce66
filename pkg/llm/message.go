package llm

import "encoding/base64"

// Message roles shared by every provider. Providers translate these into
// their own vocabulary (e.g. "assistant" becomes "model" for Gemini).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
// Content is stored as an array of ContentBlocks so a vision request can carry
// an image next to its instruction text in a provider-agnostic way.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock represents a single piece of content within a message.
// The Type field determines which other fields are populated.
type ContentBlock struct {
	Type string `json:"type"` // "text" or "image"

	// Text content (type="text")
	Text string `json:"text,omitempty"`

	// Image content (type="image")
	ImageBase64 string `json:"image_base64,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// NewImageMessage creates a user message carrying a PNG image followed by an
// instruction.
func NewImageMessage(png []byte, text string) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentBlock{
			{Type: "image", ImageBase64: base64.StdEncoding.EncodeToString(png), MediaType: "image/png"},
			{Type: "text", Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var result string
	for _, block := range m.Content {
		if block.Type == "text" {
			result += block.Text
		}
	}
	return result
}

// Image returns the first image block, if any.
func (m *Message) Image() (ContentBlock, bool) {
	for _, block := range m.Content {
		if block.Type == "image" {
			return block, true
		}
	}
	return ContentBlock{}, false
}

// DataURL renders an image block as a data: URL.
func (b ContentBlock) DataURL() string {
	return "data:" + b.MediaType + ";base64," + b.ImageBase64
}
