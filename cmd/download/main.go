package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/media"
	"nuclight.org/wa-stylist-relay/pkg/transport"
	"nuclight.org/wa-stylist-relay/pkg/whatsapp"
)

var opts struct {
	AccessToken    string        `long:"access-token" env:"ACCESS_TOKEN" required:"true" description:"whatsapp cloud api access token"`
	APIVersion     string        `long:"api-version" env:"VERSION" default:"v18.0" description:"graph api version"`
	GraphAPIBase   string        `long:"graph-api-base" env:"GRAPH_API_BASE" default:"https://graph.facebook.com" description:"graph api base url"`
	OutputDir      string        `long:"output" env:"OUTPUT_DIR" default:"./files" description:"output directory for downloaded files"`
	Workers        int           `long:"workers" env:"DOWNLOAD_WORKERS_NUM" default:"5" description:"number of concurrent download workers"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"10s" description:"timeout of every graph api call"`

	Args struct {
		MediaIDs []string `positional-arg-name:"media-id" required:"1"`
	} `positional-args:"yes"`
}

var (
	wg         sync.WaitGroup
	downloaded int64
	skipped    int64
	failed     int64
)

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger("debug")
	log.Info("starting download", "count", len(opts.Args.MediaIDs))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		log.Error("creating output directory", "error", err)
		os.Exit(1)
	}

	graph := whatsapp.NewGraph(
		whatsapp.Config{
			APIBase: opts.GraphAPIBase,
			Version: opts.APIVersion,
		},
		transport.NewClient(opts.AccessToken, opts.RequestTimeout, http.DefaultClient),
		log,
	)

	seen := make(map[string]struct{})
	taskChan := make(chan string, len(opts.Args.MediaIDs))
	for _, id := range opts.Args.MediaIDs {
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		taskChan <- id
	}
	close(taskChan)

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for mediaID := range taskChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				// media urls expire, resolve right before downloading
				loc, err := graph.ResolveMediaLocation(ctx, mediaID)
				if err != nil || loc.URL == "" {
					log.Error("resolving media", "error", err, "media_id", mediaID)
					atomic.AddInt64(&failed, 1)
					continue
				}

				path := filepath.Join(opts.OutputDir, mediaID+media.Extension(loc.MimeType))

				if _, err := os.Stat(path); err == nil {
					atomic.AddInt64(&skipped, 1)
					continue
				}

				content, err := graph.FetchMediaBytes(ctx, loc.URL)
				if err != nil {
					log.Error("downloading media", "error", err, "media_id", mediaID)
					atomic.AddInt64(&failed, 1)
					continue
				}

				if err := os.WriteFile(path, content, 0644); err != nil {
					log.Error("writing file", "error", err, "path", path)
					atomic.AddInt64(&failed, 1)
					continue
				}

				n := atomic.AddInt64(&downloaded, 1)
				if n%10 == 0 {
					log.Debug("progress", "downloaded", n)
				}
			}
		}()
	}

	wg.Wait()

	log.Info("done",
		"downloaded", downloaded,
		"skipped", skipped,
		"failed", failed,
	)
}
