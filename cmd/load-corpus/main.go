// load-corpus bulk-ingests a processed corpus file into the vector database.
// The corpus is a JSON array of {"file": ..., "metadata": {...}} entries,
// read from the configured corpus storage (local directory or S3).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	"ragchat-backend/config"
	"ragchat-backend/ingest"
	"ragchat-backend/retrieval"
	"ragchat-backend/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	corpusKey := flag.String("file", "processed_corpus.json", "corpus file key in storage")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	corpusStore, err := storage.NewFromEnv()
	if err != nil {
		logger.Fatal("failed to initialize corpus storage", zap.Error(err))
	}

	ctx := context.Background()

	reader, err := corpusStore.Open(ctx, *corpusKey)
	if err != nil {
		logger.Fatal("failed to open corpus file", zap.Error(err))
	}
	defer reader.Close()

	var entries []retrieval.CorpusEntry
	if err := json.NewDecoder(reader).Decode(&entries); err != nil {
		logger.Fatal("failed to decode corpus file", zap.Error(err))
	}
	logger.Info("corpus loaded", zap.String("key", *corpusKey), zap.Int("entries", len(entries)))

	client := retrieval.NewClient(cfg.BaseURL, cfg.Token,
		retrieval.WithMetricType(cfg.MetricType),
		retrieval.WithSearchTimeout(cfg.SearchTimeout),
		retrieval.WithDialogueTimeout(cfg.DialogueTimeout),
	)

	dbName := cfg.DatabaseName()
	if err := client.CreateDatabase(ctx, dbName); err != nil {
		logger.Warn("vector database creation failed, assuming it exists",
			zap.String("database", dbName),
			zap.Error(err))
	}

	loader := ingest.NewLoader(client, logger,
		ingest.WithBatchSize(cfg.IngestBatchSize),
		ingest.WithWorkers(cfg.IngestWorkers),
		ingest.WithSettleDelay(cfg.SettleDelay),
	)

	result, err := loader.Load(ctx, dbName, entries)
	if err != nil {
		logger.Fatal("corpus ingestion failed",
			zap.Int("uploaded", result.Uploaded),
			zap.Int("failed", result.Failed),
			zap.Error(err))
	}
	logger.Info("corpus ingestion complete",
		zap.String("database", dbName),
		zap.Int("uploaded", result.Uploaded))
}
