package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/transport"
)

func newTestGraph(t *testing.T, h http.HandlerFunc) *Graph {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := transport.NewClient("access-token", time.Second, srv.Client())
	return NewGraph(Config{
		APIBase:       srv.URL + "/",
		Version:       "v18.0",
		PhoneNumberID: "555",
	}, client, logger.Nop())
}

func TestResolveMediaLocation(t *testing.T) {
	var gotPath, gotAuth string
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"url":"https://cdn.example/img","mime_type":"image/jpeg","id":"m1"}`))
	})

	loc, err := g.ResolveMediaLocation(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v18.0/m1/" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer access-token" {
		t.Errorf("unexpected auth %q", gotAuth)
	}
	if loc.URL != "https://cdn.example/img" || loc.MimeType != "image/jpeg" {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestResolveMediaLocation_MissingFields(t *testing.T) {
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	})

	loc, err := g.ResolveMediaLocation(context.Background(), "m1")
	if err != nil {
		t.Fatalf("missing fields must not fail: %v", err)
	}
	if loc.URL != "" || loc.MimeType != "" {
		t.Errorf("expected empty location, got %+v", loc)
	}
}

func TestResolveMediaLocation_NotFound(t *testing.T) {
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"unknown"}}`))
	})

	_, err := g.ResolveMediaLocation(context.Background(), "m1")
	if !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestResolveMediaLocation_NonOKSuccessIsNotFound(t *testing.T) {
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	_, err := g.ResolveMediaLocation(context.Background(), "m1")
	if !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestFetchMediaBytes(t *testing.T) {
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})

	data, err := g.FetchMediaBytes(context.Background(), g.cfg.APIBase+"/media/blob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 3 || data[0] != 0xff {
		t.Errorf("unexpected data %v", data)
	}
}

func TestFetchMediaBytes_NotFound(t *testing.T) {
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := g.FetchMediaBytes(context.Background(), g.cfg.APIBase+"/media/blob")
	if !errors.Is(err, ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestSendText(t *testing.T) {
	var gotPath, gotType string
	var got map[string]any
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.x"}]}`))
	})

	err := g.SendText(context.Background(), e.OutboundMessage{To: "15550001111", Body: "HELLO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v18.0/555/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotType != "application/json" {
		t.Errorf("unexpected content type %q", gotType)
	}
	if got["to"] != "15550001111" || got["messaging_product"] != "whatsapp" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendText_HTTPErrorIsTyped(t *testing.T) {
	g := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad recipient"}`))
	})

	err := g.SendText(context.Background(), e.OutboundMessage{To: "x", Body: "y"})

	var httpErr *transport.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.StatusCode)
	}
}

func TestNewGraph_Defaults(t *testing.T) {
	g := NewGraph(Config{}, nil, logger.Nop())
	if g.cfg.APIBase != DefaultAPIBase || g.cfg.Version != DefaultVersion {
		t.Errorf("unexpected defaults %+v", g.cfg)
	}
}
