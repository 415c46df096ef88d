package whatsapp

import (
	"encoding/json"
	"regexp"
	"strings"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
)

const shoppingSearchURL = "https://www.google.com/search?tbm=shop&q="

var (
	citationPattern = regexp.MustCompile(`【.*?】`)
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// StripPlatformMarkup drops 【…】 citation markers and rewrites **bold** into
// the single asterisk emphasis WhatsApp renders.
func StripPlatformMarkup(text string) string {
	if citationPattern.MatchString(text) {
		text = strings.TrimSpace(citationPattern.ReplaceAllString(text, ""))
	}

	// runs of asterisks can leave a new **pair** behind, repeat until stable
	for {
		next := boldPattern.ReplaceAllString(text, "*$1*")
		if next == text {
			return text
		}
		text = next
	}
}

// ShoppingSearchURL builds a Google Shopping search link for item. Only spaces
// are escaped.
func ShoppingSearchURL(item string) string {
	return shoppingSearchURL + strings.ReplaceAll(item, " ", "%20")
}

type textPayload struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textContent `json:"text"`
}

type textContent struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// BuildTextPayload encodes msg in the send-message wire format.
func BuildTextPayload(msg e.OutboundMessage) ([]byte, error) {
	return json.Marshal(textPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.To,
		Type:             "text",
		Text: textContent{
			PreviewURL: msg.PreviewURL,
			Body:       msg.Body,
		},
	})
}
