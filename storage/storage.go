// Package storage abstracts where corpus files live: a local directory for
// development, an S3 bucket for shared deployments. The corpus loader reads
// processed corpus JSON through it and the corpus generator writes through
// it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// CorpusStorage reads and writes corpus files by key.
type CorpusStorage interface {
	// Open returns the content of a corpus file.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Save writes a corpus file, replacing any previous content.
	Save(ctx context.Context, key string, data io.Reader) error
}

// Type selects a storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds backend configuration.
type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New creates a corpus storage backend from a Config.
func New(cfg Config) (CorpusStorage, error) {
	switch cfg.Type {
	case TypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewFromEnv creates a corpus storage backend from environment variables.
// Defaults to a local ./corpus directory for development.
func NewFromEnv() (CorpusStorage, error) {
	storageType := os.Getenv("CORPUS_STORAGE_TYPE")
	if storageType == "" {
		storageType = string(TypeLocal)
	}

	switch Type(storageType) {
	case TypeLocal:
		localPath := os.Getenv("CORPUS_LOCAL_PATH")
		if localPath == "" {
			localPath = "./corpus"
		}
		return NewLocalStorage(localPath)

	case TypeS3:
		cfg := Config{
			Type:         TypeS3,
			S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
			S3Region:     os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Storage(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}
