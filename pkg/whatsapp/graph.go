package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	e "nuclight.org/wa-stylist-relay/pkg/entities"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/transport"
)

const (
	DefaultAPIBase = "https://graph.facebook.com"
	DefaultVersion = "v18.0"
)

// ErrMediaNotFound is returned when media metadata or bytes could not be retrieved.
var ErrMediaNotFound = errors.New("media not found")

type Config struct {
	APIBase       string
	Version       string
	PhoneNumberID string
}

// Graph talks to the Cloud API: media lookups, media downloads and message sends.
// The access token lives in the transport client.
type Graph struct {
	log    logger.Logger
	cfg    Config
	client *transport.Client
}

func NewGraph(cfg Config, client *transport.Client, log logger.Logger) *Graph {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}

	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}

	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	return &Graph{
		log:    log,
		cfg:    cfg,
		client: client,
	}
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// ResolveMediaLocation looks up the temporary download URL of a media id.
// Fields missing from the metadata are returned empty.
func (g *Graph) ResolveMediaLocation(ctx context.Context, mediaID string) (e.MediaLocation, error) {
	url := fmt.Sprintf("%s/%s/%s/", g.cfg.APIBase, g.cfg.Version, mediaID)

	res, err := g.get(ctx, url)
	if err != nil {
		return e.MediaLocation{}, fmt.Errorf("retrieving media %s: %w", mediaID, err)
	}

	var meta mediaMetadata
	if err = json.Unmarshal(res.Body, &meta); err != nil {
		return e.MediaLocation{}, fmt.Errorf("decoding media metadata: %w", err)
	}

	g.log.Info("retrieved media", "media_id", mediaID, "mime_type", meta.MimeType)

	return e.MediaLocation{
		URL:      meta.URL,
		MimeType: meta.MimeType,
	}, nil
}

// FetchMediaBytes downloads media from a URL returned by ResolveMediaLocation.
func (g *Graph) FetchMediaBytes(ctx context.Context, url string) ([]byte, error) {
	res, err := g.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading media: %w", err)
	}

	g.log.Info("media file downloaded", "size", len(res.Body))

	return res.Body, nil
}

// SendText posts a text message. Errors keep the transport failure kinds so
// callers can tell a timeout from other failures.
func (g *Graph) SendText(ctx context.Context, msg e.OutboundMessage) error {
	body, err := BuildTextPayload(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", g.cfg.APIBase, g.cfg.Version, g.cfg.PhoneNumberID)

	res, err := g.client.PostJSON(ctx, url, body)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	g.log.Info(
		"message sent",
		"status", res.StatusCode,
		"content_type", res.Header.Get("Content-Type"),
		"body", string(res.Body),
	)

	return nil
}

// get maps every non-200 answer to ErrMediaNotFound.
func (g *Graph) get(ctx context.Context, url string) (*transport.Response, error) {
	res, err := g.client.Get(ctx, url)
	if err != nil {
		var httpErr *transport.HTTPError
		if errors.As(err, &httpErr) {
			g.log.Info("failed to fetch media", "status", httpErr.StatusCode, "body", string(httpErr.Body))
			return nil, fmt.Errorf("%w: status %d", ErrMediaNotFound, httpErr.StatusCode)
		}

		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		g.log.Info("failed to fetch media", "status", res.StatusCode, "body", string(res.Body))
		return nil, fmt.Errorf("%w: status %d", ErrMediaNotFound, res.StatusCode)
	}

	return res, nil
}
