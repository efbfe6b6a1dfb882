package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	GenerativeModel     string `envconfig:"GENERATIVE_MODEL" default:"gpt-4o-mini"`

	Collection string `envconfig:"COLLECTION" default:"job_screening_docs"`
	SourceDir  string `envconfig:"SOURCE_DIR" default:"ground_truth_docs"`
	UploadDir  string `envconfig:"UPLOAD_DIR" default:"uploads"`

	// Chunking
	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS" default:"1000"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`

	// Retrieval
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"2"`

	// Provider retry policy
	ProviderMaxRetries int           `envconfig:"PROVIDER_MAX_RETRIES" default:"3"`
	ProviderBackoff    time.Duration `envconfig:"PROVIDER_BACKOFF" default:"2s"`
	ProviderTimeout    time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"60s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"talentsift-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TALENTSIFT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
