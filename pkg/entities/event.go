package entities

// User is the sender of an inbound event.
type User struct {
	WaID string
	Name string
}

// InboundEvent is one webhook delivery carrying a single chat message.
type InboundEvent struct {
	// ID is a correlation id assigned when the event enters the relay
	ID      string
	Sender  User
	Message MessageUnit
}

type MessageUnit struct {
	ID    string
	Type  string
	Text  *TextContent  // nil if the message carries no text
	Image *ImageContent // nil if the message carries no image
}

type TextContent struct {
	Body string
}

type ImageContent struct {
	MediaID  string
	MimeType string
}

func (m *MessageUnit) HasText() bool {
	return m.Text != nil
}

func (m *MessageUnit) HasImage() bool {
	return m.Image != nil
}

// MediaLocation is a short-lived fetch URL for a media reference. Either field
// is empty when the platform omitted it.
type MediaLocation struct {
	URL      string
	MimeType string
}

// EncodedMedia is base64 text of raw media bytes.
type EncodedMedia struct {
	Data     string
	MimeType string
}

// OutboundMessage is a text reply addressed to a single recipient.
type OutboundMessage struct {
	To         string
	Body       string
	PreviewURL bool
}
