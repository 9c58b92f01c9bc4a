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

	// Public base URL of this service, used to build the processing
	// callback URL handed to the external processor.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"shelf-files"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// External document processor. When ProcessorURL is empty, extraction
	// and chunking run in-process as a fallback.
	ProcessorURL   string `envconfig:"PROCESSOR_URL"`
	ProcessorToken string `envconfig:"PROCESSOR_TOKEN"`

	// Identity provider userinfo endpoint. When empty, DevAuthToken (if
	// set) is accepted as a single static user for local development.
	AuthUserInfoURL string `envconfig:"AUTH_USERINFO_URL"`
	DevAuthToken    string `envconfig:"DEV_AUTH_TOKEN"`
	DevAuthUserID   string `envconfig:"DEV_AUTH_USER_ID" default:"dev-user"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Files stuck in processing longer than this are swept to failed.
	ProcessingDeadline time.Duration `envconfig:"PROCESSING_DEADLINE" default:"30m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SHELF", &cfg); err != nil {
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

func (c *Config) HasProcessor() bool {
	return c.ProcessorURL != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// CallbackURL returns the endpoint the external processor posts results to.
func (c *Config) CallbackURL() string {
	return c.PublicBaseURL + "/callbacks/processing"
}
