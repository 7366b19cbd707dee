package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/archive"
	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/engine"
	"github.com/hyperjump/youyaku/internal/keyword"
	"github.com/hyperjump/youyaku/internal/metrics"
	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/pipeline"
	"github.com/hyperjump/youyaku/internal/search"
	"github.com/hyperjump/youyaku/internal/storage"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

// archiveQueueSize bounds records waiting to be written to SQLite and Bleve.
const archiveQueueSize = 128

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Storage      storage.Storage
	KeywordIndex *keyword.BleveIndex
	Model        model.Summarizer
	Events       *pipeline.LogSink
	Metrics      *metrics.Sink
	Archive      *archive.Archiver
	Pipeline     *pipeline.Pipeline
	Engine       *engine.Engine
	History      *search.Engine
}

// Close drains the archive and event queues before releasing storage.
func (c *Components) Close() {
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
	if c.Events != nil {
		_ = c.Events.Close()
	}
	if c.Model != nil {
		_ = c.Model.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// Status reports the same fields as GET /api/v1/status, read locally.
func (c *Components) Status(ctx context.Context) (*models.StatusResponse, error) {
	count, err := c.Storage.CountRecords(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.Config
	status := &models.StatusResponse{
		Summaries:          count,
		LengthTableVersion: models.LengthTableVersion,
		Config: &models.StatusConfig{
			ModelProvider:  cfg.Model.Provider,
			ModelName:      cfg.Model.Name,
			Encoding:       cfg.Tokenizer.Encoding,
			MaxTokens:      cfg.Pipeline.MaxTokens,
			MaxDepth:       cfg.Pipeline.MaxDepth,
			MaxConcurrency: cfg.Pipeline.MaxConcurrency,
			DatabasePath:   cfg.Storage.DatabasePath,
			BleveIndexPath: cfg.Storage.BleveIndexPath,
		},
	}
	if n, err := c.KeywordIndex.DocCount(); err == nil {
		status.IndexSize = &n
	}
	if usage, err := storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
		total := usage.Total()
		status.DiskUsageBytes = &total
	}
	return status, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	// Word counts run below BPE counts, so a missing encoding is fatal rather
	// than a silent switch to the word counter.
	counter, err := tokenizer.New(cfg.Tokenizer.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	summarizer, err := model.New(ctx, cfg.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model: %w", err)
	}
	c.Model = summarizer
	logger.Info("model initialized",
		zap.String("provider", cfg.Model.Provider),
		zap.String("name", summarizer.Name()),
		zap.String("tokenizer", counter.Name()))

	c.Metrics = metrics.NewSink()
	c.Events = pipeline.NewLogSink(logger, cfg.Pipeline.EventBuffer, pipeline.WithDropHook(c.Metrics.EventDropped))
	c.Pipeline = pipeline.New(counter, summarizer, cfg.Pipeline,
		pipeline.WithLogger(logger),
		pipeline.WithSink(pipeline.MultiSink{c.Events, c.Metrics}),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	c.Archive = archive.New(store, keywordIndex, archiveQueueSize, archive.WithLogger(logger))
	c.Engine = engine.NewEngine(c.Pipeline, &cfg.Pipeline,
		engine.WithRecorder(c.Archive),
		engine.WithLogger(logger),
	)
	c.History = search.NewEngine(store, keywordIndex, &cfg.Search,
		search.WithSpellChecker(keyword.NewSpellChecker(keywordIndex)),
		search.WithLogger(logger),
	)

	ok = true
	return c, nil
}
