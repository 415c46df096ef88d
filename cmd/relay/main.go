package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jessevdk/go-flags"
	openai "github.com/sashabaranov/go-openai"
	"nuclight.org/wa-stylist-relay/app/dispatcher"
	"nuclight.org/wa-stylist-relay/app/report"
	"nuclight.org/wa-stylist-relay/app/storage"
	"nuclight.org/wa-stylist-relay/app/webhook"
	"nuclight.org/wa-stylist-relay/pkg/ai"
	"nuclight.org/wa-stylist-relay/pkg/logger"
	"nuclight.org/wa-stylist-relay/pkg/transport"
	"nuclight.org/wa-stylist-relay/pkg/whatsapp"
)

var opts struct {
	AccessToken   string `long:"access-token" env:"ACCESS_TOKEN" required:"true" description:"whatsapp cloud api access token"`
	APIVersion    string `long:"api-version" env:"VERSION" default:"v18.0" description:"graph api version"`
	GraphAPIBase  string `long:"graph-api-base" env:"GRAPH_API_BASE" default:"https://graph.facebook.com" description:"graph api base url"`
	PhoneNumberID string `long:"phone-number-id" env:"PHONE_NUMBER_ID" required:"true" description:"whatsapp business phone number id"`
	RecipientWaID string `long:"recipient-waid" env:"RECIPIENT_WAID" description:"send every reply to this wa_id instead of the sender"`
	VerifyToken   string `long:"verify-token" env:"VERIFY_TOKEN" required:"true" description:"token expected in the webhook verification handshake"`
	AppSecret     string `long:"app-secret" env:"APP_SECRET" description:"app secret used to check X-Hub-Signature-256, checks are off when empty"`

	OpenAIKey        string `long:"openai-api-key" env:"OPENAI_API_KEY" required:"true" description:"inference provider api key"`
	OpenAIBaseURL    string `long:"openai-base-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"inference provider base url"`
	VisionModel      string `long:"vision-model" env:"VISION_MODEL" default:"gpt-4o" description:"model used for image messages"`
	VisionMaxTokens  int    `long:"vision-max-tokens" env:"VISION_MAX_TOKENS" default:"300" description:"response length cap for image messages"`
	VisionPromptFile string `long:"vision-prompt-file" env:"VISION_PROMPT_FILE" description:"file overriding the built-in styling prompt"`
	ReplyStrategy    string `long:"reply-strategy" env:"REPLY_STRATEGY" default:"uppercase" choice:"uppercase" choice:"llm" description:"how text messages are answered"`
	ReplyModel       string `long:"reply-model" env:"REPLY_MODEL" default:"gpt-4o-mini" description:"model used by the llm reply strategy"`

	ListenAddr     string        `long:"listen-addr" env:"LISTEN_ADDR" default:":8000" description:"address the webhook server listens on"`
	WebhookPath    string        `long:"webhook-path" env:"WEBHOOK_PATH" default:"/webhook" description:"webhook route"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"10s" description:"timeout of every outbound call"`
	DBPath         string        `long:"db-path" env:"DB_PATH" description:"path to the sqlite event journal, journaling is off when empty"`
	SentryDSN      string        `long:"sentry-dsn" env:"SENTRY_DSN" description:"sentry dsn, reporting is off when empty"`
	LogLevel       string        `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn or error"`
}

var Revision = "dev"

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger(opts.LogLevel)
	log.Info("starting relay", "revision", Revision)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter, err := report.NewSentry(sentry.ClientOptions{
		Dsn:     opts.SentryDSN,
		Release: Revision,
	})
	if err != nil {
		log.Error("creating sentry reporter", "error", err)
		os.Exit(1)
	}
	defer reporter.Flush()

	visionPrompt, err := dispatcher.LoadVisionPrompt(opts.VisionPromptFile)
	if err != nil {
		log.Error("loading vision prompt", "error", err)
		os.Exit(1)
	}

	llmConf := openai.DefaultConfig(opts.OpenAIKey)
	llmConf.BaseURL = opts.OpenAIBaseURL
	llmConf.HTTPClient = &http.Client{Timeout: opts.RequestTimeout}

	reply, err := dispatcher.NewReplyStrategy(opts.ReplyStrategy, openai.NewClientWithConfig(llmConf), opts.ReplyModel)
	if err != nil {
		log.Error("creating reply strategy", "error", err)
		os.Exit(1)
	}

	graph := whatsapp.NewGraph(
		whatsapp.Config{
			APIBase:       opts.GraphAPIBase,
			Version:       opts.APIVersion,
			PhoneNumberID: opts.PhoneNumberID,
		},
		transport.NewClient(opts.AccessToken, opts.RequestTimeout, http.DefaultClient),
		log,
	)

	vision := ai.NewOpenAI(
		ai.Config{
			BaseURL:   opts.OpenAIBaseURL,
			Model:     opts.VisionModel,
			MaxTokens: opts.VisionMaxTokens,
		},
		transport.NewClient(opts.OpenAIKey, opts.RequestTimeout, http.DefaultClient),
	)

	disp := &dispatcher.Dispatcher{
		Log:          log,
		Media:        graph,
		Vision:       vision,
		Sender:       graph,
		Reply:        reply,
		VisionPrompt: visionPrompt,
		Recipient:    opts.RecipientWaID,
	}

	if opts.DBPath != "" {
		db, err := storage.NewSQLite(ctx, opts.DBPath)
		if err != nil {
			log.Error("creating sqlite3 database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("closing sqlite3 database", "error", err)
			}
		}()

		disp.Journal = db
	}

	handler := &webhook.Handler{
		Log:         log,
		Dispatcher:  disp,
		Reporter:    reporter,
		VerifyToken: opts.VerifyToken,
		AppSecret:   opts.AppSecret,
		Path:        opts.WebhookPath,
	}

	err = webhook.Serve(ctx, log, opts.ListenAddr, handler.Routes())
	if err != nil {
		log.Error("serving webhook", "error", err)
		cancel()
		reporter.Flush()
		os.Exit(1)
	}

	log.Info("relay stopped")
}
