package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Sentry reports errors to Sentry. A zero DSN turns every call into a no-op.
type Sentry struct {
	hub *sentry.Hub
}

func NewSentry(opts sentry.ClientOptions) (*Sentry, error) {
	if opts.Dsn == "" {
		return &Sentry{}, nil
	}

	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}

	return &Sentry{
		hub: sentry.NewHub(client, sentry.NewScope()),
	}, nil
}

func (s *Sentry) Enabled() bool {
	return s.hub != nil
}

// Capture sends err with the given tags attached.
func (s *Sentry) Capture(err error, tags map[string]string) {
	if s.hub == nil || err == nil {
		return
	}

	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

func (s *Sentry) Flush() {
	if s.hub == nil {
		return
	}

	s.hub.Flush(flushTimeout)
}
