package app

import (
	"context"
	"fmt"
	"log/slog"

	"listingfilter/internal/config"
	"listingfilter/internal/repository"
	"listingfilter/internal/service"
)

// Services holds the components shared by the server and the CLI
type Services struct {
	Dataset    *repository.Dataset
	Dispatcher *service.Dispatcher
	Extractor  service.IDExtractor
	Search     *service.SearchService
}

// Build loads the dataset and wires the dispatch pipeline
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	src, err := repository.Open(cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset source: %w", err)
	}
	defer src.Close()

	dataset, err := repository.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", "source", fmt.Sprint(src), "listings", dataset.Len())

	client := service.NewOpenAIClient(&cfg.OpenAI, logger)
	if cfg.OpenAI.Enabled {
		logger.Info("OpenAI client initialized",
			"api_base", cfg.OpenAI.APIBase,
			"model", cfg.OpenAI.ChatModel,
			"temperature", cfg.OpenAI.ChatTemperature,
			"top_p", cfg.OpenAI.ChatTopP,
			"max_tokens", cfg.OpenAI.ChatMaxTokens,
			"reply_format", cfg.OpenAI.ReplyFormat,
		)
	} else {
		logger.Warn("OpenAI is disabled, filter queries will fail; set OPENAI_API_KEY to enable")
	}

	dispatcher := service.NewDispatcher(client, cfg.OpenAI.ReplyFormat, logger)
	extractor := service.NewExtractor(cfg.OpenAI.ReplyFormat)

	return &Services{
		Dataset:    dataset,
		Dispatcher: dispatcher,
		Extractor:  extractor,
		Search:     service.NewSearchService(dataset, dispatcher, extractor, logger),
	}, nil
}
