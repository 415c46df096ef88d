package media

import (
	"bytes"
	"encoding/base64"
	"testing"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
)

func TestEncodeToBase64_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		[]byte("hello"),
		{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10},
		bytes.Repeat([]byte{0x01, 0x02, 0x03}, 1000),
	}

	for _, in := range inputs {
		out := EncodeToBase64(in)
		decoded, err := base64.StdEncoding.DecodeString(out)
		if err != nil {
			t.Fatalf("decoding %q: %v", out, err)
		}
		if !bytes.Equal(decoded, in) {
			t.Errorf("round trip mismatch for %d bytes", len(in))
		}
	}
}

func TestEncodeToBase64_Empty(t *testing.T) {
	if got := EncodeToBase64(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestEncode_DefaultMimeType(t *testing.T) {
	m := Encode([]byte("x"), "")
	if m.MimeType != DefaultMimeType {
		t.Errorf("expected %s, got %s", DefaultMimeType, m.MimeType)
	}
}

func TestDataURI(t *testing.T) {
	got := DataURI(e.EncodedMedia{Data: "QUJD", MimeType: "image/png"})
	if got != "data:image/png;base64,QUJD" {
		t.Errorf("unexpected data uri %q", got)
	}

	got = DataURI(e.EncodedMedia{Data: "QUJD"})
	if got != "data:image/jpeg;base64,QUJD" {
		t.Errorf("unexpected data uri %q", got)
	}
}

func TestExtension(t *testing.T) {
	if Extension("image/png") != ".png" {
		t.Error("expected .png")
	}
	if Extension("application/x-unknown") != "" {
		t.Error("expected empty extension for unknown type")
	}
	if MimeTypeByExtension(".jpeg") != "image/jpeg" {
		t.Error("expected image/jpeg")
	}
}
