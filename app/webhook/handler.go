package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	e "nuclight.org/wa-stylist-relay/pkg/entities"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/transport"
	"nuclight.org/wa-stylist-relay/pkg/whatsapp"
)

const (
	DefaultPath = "/webhook"

	maxBodySize = 1 << 20
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev e.InboundEvent) (e.Outcome, error)
}

type Reporter interface {
	Capture(err error, tags map[string]string)
}

// Handler receives Cloud API webhook callbacks and hands message events to
// the dispatcher. Each request is handled to completion before responding.
type Handler struct {
	Log        logger.Logger
	Dispatcher Dispatcher

	// Reporter receives send failures, optional
	Reporter Reporter

	// VerifyToken is matched against hub.verify_token during subscription
	VerifyToken string

	// AppSecret enables X-Hub-Signature-256 checks when set
	AppSecret string

	// Path is the webhook route, DefaultPath if empty
	Path string
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) Routes() http.Handler {
	path := h.Path
	if path == "" {
		path = DefaultPath
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, h.handleVerification)
	mux.HandleFunc("POST "+path, h.handleIncoming)

	return mux
}

// handleVerification answers the subscription challenge.
func (h *Handler) handleVerification(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "" || token == "" {
		h.Log.Info("webhook verification missing parameter")
		writeJSON(rw, http.StatusBadRequest, response{Status: "error", Message: "Missing parameters"})
		return
	}

	if mode != "subscribe" || token != h.VerifyToken {
		h.Log.Warn("webhook verification failed", "mode", mode)
		writeJSON(rw, http.StatusForbidden, response{Status: "error", Message: "Verification failed"})
		return
	}

	h.Log.Info("webhook verified")
	rw.Header().Set("Content-Type", "text/plain")
	rw.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(rw, challenge)
}

func (h *Handler) handleIncoming(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, response{Status: "error", Message: "Failed to read body"})
		return
	}

	if h.AppSecret != "" && !verifySignature(body, h.AppSecret, r.Header.Get("X-Hub-Signature-256")) {
		h.Log.Warn("webhook signature verification failed")
		writeJSON(rw, http.StatusForbidden, response{Status: "error", Message: "Invalid signature"})
		return
	}

	var raw map[string]any
	if err = json.Unmarshal(body, &raw); err != nil {
		h.Log.Error("failed to decode webhook body", "error", err)
		writeJSON(rw, http.StatusBadRequest, response{Status: "error", Message: "Invalid JSON provided"})
		return
	}

	if whatsapp.IsStatusUpdate(raw) {
		h.Log.Debug("received a whatsapp status update")
		writeJSON(rw, http.StatusOK, response{Status: "ok"})
		return
	}

	ev, err := whatsapp.ParseEvent(body)
	if err != nil {
		h.Log.Info("not a whatsapp message event", "error", err)
		writeJSON(rw, http.StatusNotFound, response{Status: "error", Message: "Not a WhatsApp API event"})
		return
	}

	ev.ID = uuid.NewString()
	log := h.Log.With("event_id", ev.ID)
	log.Info("new message", "wa_id", ev.Sender.WaID, "name", ev.Sender.Name, "type", ev.Message.Type)

	// the reply is still owed when the webhook caller hangs up
	outcome, err := h.dispatch(context.WithoutCancel(r.Context()), log, ev)
	if err != nil {
		log.Error("dispatching event", "error", err)
		h.report(err, ev)

		if errors.Is(err, transport.ErrTimeout) {
			writeJSON(rw, http.StatusRequestTimeout, response{Status: "error", Message: "Request timed out"})
			return
		}

		writeJSON(rw, http.StatusInternalServerError, response{Status: "error", Message: "Failed to send message"})
		return
	}

	log.Info("event handled", "outcome", outcome.Kind)
	writeJSON(rw, http.StatusOK, response{Status: "ok"})
}

func (h *Handler) dispatch(ctx context.Context, log logger.Logger, ev e.InboundEvent) (out e.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic", "error", rec)
			out = e.Outcome{Kind: e.OutcomeKindFailed}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	return h.Dispatcher.Dispatch(ctx, ev)
}

func (h *Handler) report(err error, ev e.InboundEvent) {
	if h.Reporter == nil {
		return
	}

	h.Reporter.Capture(err, map[string]string{
		"event_id":     ev.ID,
		"message_type": ev.Message.Type,
	})
}

// verifySignature checks a "sha256=<hex>" HMAC of the raw body.
func verifySignature(body []byte, secret, signature string) bool {
	hexSig, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(hexSig))
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
