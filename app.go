package main

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"luxe/builder"
	"luxe/config"
	"luxe/delivery"
	"luxe/generator"
	"luxe/imagery"
	"luxe/logging"
	"luxe/mq"
	"luxe/parser"
	"luxe/render"
)

const smtpTimeout = 30 * time.Second

// loadConfig reads .env and the environment and checks credentials.
func loadConfig() (*config.Config, error) {
	if _, err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, fallbackFormat string) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.LogFormat(fallbackFormat))
}

// newBuilder assembles the pipeline from cfg. events may be nil.
func newBuilder(cfg *config.Config, events mq.Publisher, logger *zap.Logger) (*builder.Builder, error) {
	llm, err := generator.NewOpenAICompleter(cfg.OpenAI)
	if err != nil {
		return nil, err
	}
	gen := generator.New(llm, generator.Options{
		Retries: cfg.OpenAI.Retries,
		Backoff: cfg.OpenAI.Backoff,
		Timeout: cfg.OpenAI.Timeout,
	}, logger.Named("generator"))

	images, err := newResolver(cfg, logger.Named("imagery"))
	if err != nil {
		return nil, err
	}

	mailer := &delivery.SMTPMailer{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Address,
		Password: cfg.Mail.Password,
		Timeout:  smtpTimeout,
	}
	from := mail.Address{Name: cfg.Mail.FromName, Address: cfg.Mail.Address}
	dispatcher := delivery.NewDispatcher(delivery.NewLocalStore(cfg.Build.OutputDir), mailer, from, logger.Named("delivery"))

	return builder.New(builder.Deps{
		Generator: gen,
		Parser:    parser.New(logger.Named("parser")),
		Images:    images,
		Renderer:  render.New(logger.Named("render")),
		Delivery:  dispatcher,
		Events:    events,
		Logger:    logger,
	}), nil
}

func newResolver(cfg *config.Config, logger *zap.Logger) (*imagery.Resolver, error) {
	opts := imagery.Options{
		Workers: cfg.Build.ImageWorkers,
		RPS:     cfg.Build.ImageRPS,
		Timeout: cfg.Build.ImageTimeout,
	}
	if path := cfg.Build.PlaceholderImage; path != "" {
		ph, err := imagery.LoadPlaceholder(path)
		if err != nil {
			return nil, fmt.Errorf("PLACEHOLDER_IMAGE: %w", err)
		}
		opts.Placeholder = ph
	}

	client := &http.Client{Timeout: cfg.Build.ImageTimeout}
	var search imagery.Searcher
	if cfg.ImagesEnabled() {
		search = imagery.NewUnsplash(cfg.Unsplash.BaseURL, cfg.Unsplash.AccessKey, client)
	}
	return imagery.NewResolver(search, client, opts, logger), nil
}
