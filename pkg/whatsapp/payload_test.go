package whatsapp

import (
	"encoding/json"
	"errors"
	"testing"
)

const textEvent = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "15550001111", "profile": {"name": "Ann"}}],
        "messages": [{"from": "15550001111", "id": "wamid.1", "type": "text", "text": {"body": "hello"}}]
      }
    }]
  }]
}`

const imageEvent = `{
  "object": "whatsapp_business_account",
  "entry": [{"changes": [{"value": {
    "messages": [{"from": "15550002222", "id": "wamid.2", "type": "image", "image": {"id": "media-1", "mime_type": "image/png"}}]
  }}]}]
}`

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return body
}

func TestIsValidMessage_Valid(t *testing.T) {
	if !IsValidMessage(decode(t, textEvent)) {
		t.Error("text event should be valid")
	}
	if !IsValidMessage(decode(t, imageEvent)) {
		t.Error("image event should be valid")
	}
}

func TestIsValidMessage_MissingLinks(t *testing.T) {
	cases := map[string]string{
		"empty":             `{}`,
		"no object":         `{"entry":[{"changes":[{"value":{"messages":[{"id":"x"}]}}]}]}`,
		"empty object":      `{"object":"","entry":[{"changes":[{"value":{"messages":[{"id":"x"}]}}]}]}`,
		"no entry":          `{"object":"o"}`,
		"empty entry":       `{"object":"o","entry":[]}`,
		"entry not list":    `{"object":"o","entry":{"changes":[]}}`,
		"entry item scalar": `{"object":"o","entry":[1]}`,
		"no changes":        `{"object":"o","entry":[{}]}`,
		"empty changes":     `{"object":"o","entry":[{"changes":[]}]}`,
		"no value":          `{"object":"o","entry":[{"changes":[{}]}]}`,
		"empty value":       `{"object":"o","entry":[{"changes":[{"value":{}}]}]}`,
		"value not map":     `{"object":"o","entry":[{"changes":[{"value":"x"}]}]}`,
		"no messages":       `{"object":"o","entry":[{"changes":[{"value":{"contacts":[]}}]}]}`,
		"empty messages":    `{"object":"o","entry":[{"changes":[{"value":{"messages":[]}}]}]}`,
		"empty message":     `{"object":"o","entry":[{"changes":[{"value":{"messages":[{}]}}]}]}`,
		"null message":      `{"object":"o","entry":[{"changes":[{"value":{"messages":[null]}}]}]}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if IsValidMessage(decode(t, raw)) {
				t.Errorf("expected invalid for %s", raw)
			}
		})
	}
}

func TestIsValidMessage_NilBody(t *testing.T) {
	if IsValidMessage(nil) {
		t.Error("nil body should be invalid")
	}
}

func TestIsStatusUpdate(t *testing.T) {
	raw := `{"object":"o","entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.1","status":"delivered"}]}}]}]}`
	if !IsStatusUpdate(decode(t, raw)) {
		t.Error("expected status update")
	}
	if IsStatusUpdate(decode(t, textEvent)) {
		t.Error("message event is not a status update")
	}
}

func TestParseEvent_Text(t *testing.T) {
	ev, err := ParseEvent([]byte(textEvent))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.Sender.WaID != "15550001111" {
		t.Errorf("unexpected sender %q", ev.Sender.WaID)
	}
	if ev.Sender.Name != "Ann" {
		t.Errorf("unexpected name %q", ev.Sender.Name)
	}
	if !ev.Message.HasText() || ev.Message.Text.Body != "hello" {
		t.Errorf("unexpected text %+v", ev.Message.Text)
	}
	if ev.Message.HasImage() {
		t.Error("text event must not carry an image")
	}
}

func TestParseEvent_ImageFallsBackToFrom(t *testing.T) {
	ev, err := ParseEvent([]byte(imageEvent))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.Sender.WaID != "15550002222" {
		t.Errorf("expected sender from message, got %q", ev.Sender.WaID)
	}
	if !ev.Message.HasImage() {
		t.Fatal("expected image")
	}
	if ev.Message.Image.MediaID != "media-1" || ev.Message.Image.MimeType != "image/png" {
		t.Errorf("unexpected image %+v", ev.Message.Image)
	}
}

func TestParseEvent_Errors(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON, got %v", err)
	}

	if _, err := ParseEvent([]byte(`{"object":"o"}`)); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}

	// valid path but a field with the wrong type
	raw := `{"object":"o","entry":[{"changes":[{"value":{"messages":[{"text":"oops"}]}}]}]}`
	if _, err := ParseEvent([]byte(raw)); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}
