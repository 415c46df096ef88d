package dispatcher

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"nuclight.org/wa-stylist-relay/pkg/ai"
	e "nuclight.org/wa-stylist-relay/pkg/entities"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/media"
	"nuclight.org/wa-stylist-relay/pkg/whatsapp"
)

// DefaultVisionPrompt asks for a styling critique answered with a single item name.
//
//go:embed vision_prompt.txt
var DefaultVisionPrompt string

// Dispatcher handles one inbound event at a time. Text messages go through the
// reply strategy. Images are resolved, downloaded, encoded and sent to the
// vision model, and the recommended item comes back as a shopping search link.
// Every external call is attempted once. Lookup, download and inference
// failures abort the branch without a reply; only a failed send is returned
// as an error, because the webhook caller has to report it.
type Dispatcher struct {
	// Log is a logger
	Log logger.Logger

	// Media resolves and downloads media references
	Media MediaSource

	// Vision runs image inference
	Vision VisionClient

	// Sender delivers replies
	Sender Sender

	// Reply turns inbound text into reply text
	Reply ReplyStrategy

	// VisionPrompt is sent along with every image, DefaultVisionPrompt if empty
	VisionPrompt string

	// Recipient receives every reply when set, instead of the event sender
	Recipient string

	// Journal records events and their outcomes, optional
	Journal Journal
}

// Dispatch handles an event and returns what was done with it. The returned
// error is only ever a send failure wrapping the transport error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev e.InboundEvent) (e.Outcome, error) {
	log := d.Log.With("event_id", ev.ID, "wa_id", ev.Sender.WaID)

	entryID, journaled := d.saveEvent(ctx, log, ev)

	var (
		outcome e.Outcome
		err     error
	)

	switch {
	case ev.Message.HasText():
		outcome, err = d.handleText(ctx, log, ev)
	case ev.Message.HasImage():
		outcome, err = d.handleImage(ctx, log, ev)
	default:
		log.Info("unhandled message kind", "type", ev.Message.Type)
		outcome = e.Outcome{Kind: e.OutcomeKindUnhandled, Note: ev.Message.Type}
	}

	if journaled {
		d.saveResult(ctx, log, entryID, outcome, err)
	}

	return outcome, err
}

func (d *Dispatcher) handleText(ctx context.Context, log logger.Logger, ev e.InboundEvent) (e.Outcome, error) {
	reply, err := d.Reply.Generate(ctx, ev.Message.Text.Body)
	if err != nil {
		log.Error("generating reply", "error", err)
		return abort(fmt.Errorf("generating reply: %w", err)), nil
	}

	return d.send(ctx, log, ev, reply)
}

func (d *Dispatcher) handleImage(ctx context.Context, log logger.Logger, ev e.InboundEvent) (e.Outcome, error) {
	img := ev.Message.Image

	loc, err := d.Media.ResolveMediaLocation(ctx, img.MediaID)
	if err != nil {
		log.Error("resolving media location", "media_id", img.MediaID, "error", err)
		return abort(err), nil
	}

	if loc.URL == "" {
		log.Error("media location has no url", "media_id", img.MediaID)
		return abort(fmt.Errorf("media %s: %w", img.MediaID, whatsapp.ErrMediaNotFound)), nil
	}

	data, err := d.Media.FetchMediaBytes(ctx, loc.URL)
	if err != nil {
		log.Error("fetching media", "media_id", img.MediaID, "error", err)
		return abort(err), nil
	}

	mimeType := loc.MimeType
	if mimeType == "" {
		mimeType = img.MimeType
	}

	encoded := media.Encode(data, mimeType)
	log.Debug("image encoded", "mime_type", encoded.MimeType, "size", len(data))

	res, err := d.Vision.RunVisionInference(ctx, encoded, d.visionPrompt())
	if err != nil {
		log.Error("running vision inference", "error", err)
		return abort(err), nil
	}

	item, err := ExtractItem(res)
	if err != nil {
		log.Error("extracting recommended item", "error", err)
		return abort(err), nil
	}

	log.Info("vision recommendation", "item", item)

	return d.send(ctx, log, ev, whatsapp.ShoppingSearchURL(item))
}

func (d *Dispatcher) send(ctx context.Context, log logger.Logger, ev e.InboundEvent, body string) (e.Outcome, error) {
	msg := e.OutboundMessage{
		To:   d.recipient(ev),
		Body: body,
	}

	err := d.Sender.SendText(ctx, msg)
	if err != nil {
		return e.Outcome{Kind: e.OutcomeKindFailed, Note: err.Error()}, fmt.Errorf("sending reply: %w", err)
	}

	log.Info("reply sent", "to", msg.To)

	return e.Outcome{Kind: e.OutcomeKindReplied, Note: body}, nil
}

func (d *Dispatcher) recipient(ev e.InboundEvent) string {
	if d.Recipient != "" {
		return d.Recipient
	}

	return ev.Sender.WaID
}

func (d *Dispatcher) visionPrompt() string {
	if d.VisionPrompt != "" {
		return d.VisionPrompt
	}

	return DefaultVisionPrompt
}

// LoadVisionPrompt reads a prompt override from path, DefaultVisionPrompt if path is empty.
func LoadVisionPrompt(path string) (string, error) {
	if path == "" {
		return DefaultVisionPrompt, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading vision prompt: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("vision prompt file %s is empty", path)
	}

	return prompt, nil
}

func (d *Dispatcher) saveEvent(ctx context.Context, log logger.Logger, ev e.InboundEvent) (int64, bool) {
	if d.Journal == nil {
		return 0, false
	}

	id, err := d.Journal.SaveEvent(ctx, ev)
	if err != nil {
		log.Warn("saving event to journal", "error", err)
		return 0, false
	}

	return id, true
}

func (d *Dispatcher) saveResult(ctx context.Context, log logger.Logger, id int64, outcome e.Outcome, dispatchErr error) {
	var err error
	if dispatchErr != nil {
		err = d.Journal.SaveError(ctx, id, dispatchErr.Error())
	} else {
		err = d.Journal.SaveOutcome(ctx, id, outcome)
	}

	if err != nil {
		log.Warn("saving outcome to journal", "error", err)
	}
}

// ExtractItem reads the recommended item name from a vision completion.
func ExtractItem(res *ai.Response) (string, error) {
	content, err := res.FirstContent()
	if err != nil {
		return "", err
	}

	item := strings.TrimSpace(whatsapp.StripPlatformMarkup(content))
	item = strings.TrimSpace(strings.Trim(item, "*_\"'`."))
	if item == "" {
		return "", fmt.Errorf("%w: empty item", ai.ErrMalformedResponse)
	}

	return item, nil
}

func abort(err error) e.Outcome {
	return e.Outcome{Kind: e.OutcomeKindAborted, Note: err.Error()}
}

type MediaSource interface {
	ResolveMediaLocation(ctx context.Context, mediaID string) (e.MediaLocation, error)
	FetchMediaBytes(ctx context.Context, url string) ([]byte, error)
}

type VisionClient interface {
	RunVisionInference(ctx context.Context, img e.EncodedMedia, prompt string) (*ai.Response, error)
}

type Sender interface {
	SendText(ctx context.Context, msg e.OutboundMessage) error
}

type Journal interface {
	SaveEvent(ctx context.Context, ev e.InboundEvent) (int64, error)
	SaveOutcome(ctx context.Context, id int64, outcome e.Outcome) error
	SaveError(ctx context.Context, id int64, error string) error
}
