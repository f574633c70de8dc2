package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Settings holds every tunable of the service. All fields are overridable
// through the environment.
type Settings struct {
	// Vector-store service.
	BaseURL    string `env:"VECTOR_DB_BASE_URL" envDefault:"http://localhost:9002/api"`
	Token      string `env:"VECTOR_DB_TOKEN"`
	UserName   string `env:"USER_NAME" envDefault:"ragchat"`
	MetricType string `env:"DEFAULT_METRIC_TYPE" envDefault:"cosine"`

	// Retrieval and context assembly.
	MaxContextLength int           `env:"MAX_CONTEXT_LENGTH" envDefault:"2000"`
	TopK             int           `env:"TOP_K" envDefault:"3"`
	RerankTopN       int           `env:"RERANK_TOP_N" envDefault:"5"`
	RerankerURL      string        `env:"RERANKER_URL"`
	SearchTimeout    time.Duration `env:"SEARCH_TIMEOUT" envDefault:"15s"`
	DialogueTimeout  time.Duration `env:"DIALOGUE_TIMEOUT" envDefault:"60s"`

	// Ingestion.
	SettleDelay     time.Duration `env:"INGEST_SETTLE_DELAY" envDefault:"2s"`
	IngestBatchSize int           `env:"INGEST_BATCH_SIZE" envDefault:"20"`
	IngestWorkers   int           `env:"INGEST_WORKERS" envDefault:"4"`

	// Conversation store: "memory" (default) or "postgres".
	StoreBackend string `env:"CONVERSATION_STORE" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Server.
	Port  string `env:"PORT" envDefault:"8080"`
	Debug bool   `env:"DEBUG" envDefault:"false"`
}

// Load parses Settings from the environment.
func Load() (*Settings, error) {
	cfg := &Settings{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// DatabaseName derives the per-deployment vector database name.
func (s *Settings) DatabaseName() string {
	return fmt.Sprintf("student_%s_final", s.UserName)
}
