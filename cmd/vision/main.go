package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"nuclight.org/wa-stylist-relay/app/dispatcher"
	"nuclight.org/wa-stylist-relay/pkg/ai"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/media"
	"nuclight.org/wa-stylist-relay/pkg/transport"
	"nuclight.org/wa-stylist-relay/pkg/whatsapp"
)

var opts struct {
	OpenAIKey      string        `long:"ai-key" env:"OPENAI_API_KEY" required:"true" description:"inference provider api key"`
	OpenAIBaseURL  string        `long:"ai-base-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"inference provider base url"`
	Model          string        `short:"m" long:"model" env:"VISION_MODEL" default:"gpt-4o" description:"vision model"`
	MaxTokens      int           `long:"max-tokens" env:"VISION_MAX_TOKENS" default:"300" description:"response length cap"`
	PromptFile     string        `short:"p" long:"prompt-file" env:"VISION_PROMPT_FILE" description:"file overriding the built-in styling prompt"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30s" description:"timeout of the inference call"`

	Args struct {
		Images []string `positional-arg-name:"image" required:"1"`
	} `positional-args:"yes"`
}

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger("debug")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prompt, err := dispatcher.LoadVisionPrompt(opts.PromptFile)
	if err != nil {
		log.Error("loading vision prompt", "error", err)
		os.Exit(1)
	}

	vision := ai.NewOpenAI(
		ai.Config{
			BaseURL:   opts.OpenAIBaseURL,
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
		},
		transport.NewClient(opts.OpenAIKey, opts.RequestTimeout, http.DefaultClient),
	)

	failed := 0
	for _, path := range opts.Args.Images {
		url, err := recommend(ctx, vision, prompt, path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}

			log.Error("recommending item", "image", path, "error", err)
			failed++
			continue
		}

		fmt.Printf("%s\t%s\n", path, url)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func recommend(ctx context.Context, vision *ai.OpenAI, prompt, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	mimeType := media.MimeTypeByExtension(strings.ToLower(filepath.Ext(path)))
	encoded := media.Encode(data, mimeType)

	res, err := vision.RunVisionInference(ctx, encoded, prompt)
	if err != nil {
		return "", fmt.Errorf("running vision inference: %w", err)
	}

	item, err := dispatcher.ExtractItem(res)
	if err != nil {
		return "", fmt.Errorf("extracting item: %w", err)
	}

	return whatsapp.ShoppingSearchURL(item), nil
}
