package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
)

var (
	ErrInvalidJSON  = errors.New("invalid json")
	ErrInvalidEvent = errors.New("not a whatsapp message event")
)

// Payload mirrors the body of a Cloud API webhook callback.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value  `json:"value"`
	Field string `json:"field"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

type Message struct {
	From  string `json:"from"`
	ID    string `json:"id"`
	Type  string `json:"type"`
	Text  *Text  `json:"text,omitempty"`
	Image *Media `json:"image,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// IsValidMessage reports whether a message object is reachable at
// object -> entry[0] -> changes[0] -> value -> messages[0]. It stops at the
// first missing link and never panics.
func IsValidMessage(body map[string]any) bool {
	if !truthy(body["object"]) {
		return false
	}

	value, ok := firstValue(body)
	if !ok {
		return false
	}

	msg, ok := firstOf(value["messages"])
	return ok && len(msg) > 0
}

// IsStatusUpdate reports whether the callback is a delivery status
// notification rather than a message.
func IsStatusUpdate(body map[string]any) bool {
	value, ok := firstValue(body)
	if !ok {
		return false
	}

	_, ok = firstOf(value["statuses"])
	return ok
}

// ParseEvent validates a raw webhook body and decodes it into an InboundEvent.
func ParseEvent(raw []byte) (e.InboundEvent, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return e.InboundEvent{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if !IsValidMessage(body) {
		return e.InboundEvent{}, ErrInvalidEvent
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return e.InboundEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	value := payload.Entry[0].Changes[0].Value
	msg := value.Messages[0]

	ev := e.InboundEvent{
		Sender: e.User{WaID: msg.From},
		Message: e.MessageUnit{
			ID:   msg.ID,
			Type: msg.Type,
		},
	}

	if len(value.Contacts) > 0 {
		if id := value.Contacts[0].WaID; id != "" {
			ev.Sender.WaID = id
		}
		ev.Sender.Name = value.Contacts[0].Profile.Name
	}

	if msg.Text != nil {
		ev.Message.Text = &e.TextContent{Body: msg.Text.Body}
	}

	if msg.Image != nil {
		ev.Message.Image = &e.ImageContent{
			MediaID:  msg.Image.ID,
			MimeType: msg.Image.MimeType,
		}
	}

	return ev, nil
}

func firstValue(body map[string]any) (map[string]any, bool) {
	entry, ok := firstOf(body["entry"])
	if !ok {
		return nil, false
	}

	change, ok := firstOf(entry["changes"])
	if !ok {
		return nil, false
	}

	value, ok := change["value"].(map[string]any)
	if !ok || len(value) == 0 {
		return nil, false
	}

	return value, true
}

func firstOf(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	item, ok := list[0].(map[string]any)
	return item, ok
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
