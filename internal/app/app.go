package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bacmr/maktaba/internal/config"
	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/core/blob"
	db "github.com/bacmr/maktaba/internal/core/database"
	"github.com/bacmr/maktaba/internal/core/llm"
	"github.com/bacmr/maktaba/internal/ingestion"
	"github.com/bacmr/maktaba/internal/services"
)

type App struct {
	Store  core.Store
	Blobs  core.BlobStore
	Runner *ingestion.Runner
	Reaper *ingestion.StallReaper
	Server *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	blobs, err := blob.New(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Blob store initialized (%s).", cfg.StorageType)

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	generator, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the LLM: %w", err)
	}

	parser := ingestion.NewPDFParser()

	runner := ingestion.NewRunner(store, blobs, embedder, parser, ingestion.RunnerConfig{
		BatchSize:         cfg.IngestBatchSize,
		MaxTokens:         cfg.ChunkMaxTokens,
		OverlapTokens:     cfg.ChunkOverlapTokens,
		HeartbeatInterval: time.Duration(cfg.HeartbeatIntervalSeconds) * time.Second,
	})

	reaper := ingestion.NewStallReaper(store, runner,
		time.Duration(cfg.ReaperIntervalMinutes)*time.Minute,
		time.Duration(cfg.StallTimeoutMinutes)*time.Minute)

	docService := services.NewDocumentService(store, blobs, runner)
	retrievalService := services.NewRetrievalService(store, embedder)

	server := NewServer(cfg, store, runner, docService, retrievalService, generator)

	return &App{Store: store, Blobs: blobs, Runner: runner, Reaper: reaper, Server: server}, nil
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
