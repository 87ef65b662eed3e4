// Package config loads the application configuration from yaml with
// ${ENV_VAR} expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/types"
)

// Config is the application configuration tree.
type Config struct {
	Server         *ServerConfig         `yaml:"server" json:"server"`
	Extraction     *ExtractionConfig     `yaml:"extraction" json:"extraction"`
	Validation     *ValidationConfig     `yaml:"validation" json:"validation"`
	Retry          *llm.RetrySchedule    `yaml:"retry" json:"retry"`
	Models         *ModelsConfig         `yaml:"models" json:"models"`
	Ontology       *OntologyConfig       `yaml:"ontology" json:"ontology"`
	Storage        *StorageConfig        `yaml:"storage" json:"storage"`
	VectorDatabase *VectorDatabaseConfig `yaml:"vector_database" json:"vector_database"`
	Redis          *RedisConfig          `yaml:"redis" json:"redis"`
	Asynq          *AsynqConfig          `yaml:"asynq" json:"asynq"`
	Neo4j          *Neo4jConfig          `yaml:"neo4j" json:"neo4j"`
	Claims         *ClaimsConfig         `yaml:"claims" json:"claims"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	Host            string        `yaml:"host" json:"host"`
	LogPath         string        `yaml:"log_path" json:"log_path"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	JWTSecret       string        `yaml:"jwt_secret" json:"jwt_secret"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// ExtractionConfig carries the per-run defaults of the pipeline.
type ExtractionConfig struct {
	Chunking            types.ChunkingConfig `yaml:"chunking" json:"chunking"`
	Concurrency         int                  `yaml:"concurrency" json:"concurrency"`
	GroundingThreshold  float64              `yaml:"grounding_threshold" json:"grounding_threshold"`
	CandidateClassLimit int                  `yaml:"candidate_class_limit" json:"candidate_class_limit"`
	BaseNamespace       string               `yaml:"base_namespace" json:"base_namespace"`
	DefaultConfidence   float64              `yaml:"default_confidence" json:"default_confidence"`
}

// ValidationConfig configures the validation-correction loop.
type ValidationConfig struct {
	MaxIterations         int           `yaml:"max_iterations" json:"max_iterations"`
	CorrectionConcurrency int           `yaml:"correction_concurrency" json:"correction_concurrency"`
	Timeout               time.Duration `yaml:"timeout" json:"timeout"`
}

// ModelsConfig names the chat and embedding models.
type ModelsConfig struct {
	Chat      types.ModelConfig `yaml:"chat" json:"chat"`
	Embedding types.ModelConfig `yaml:"embedding" json:"embedding"`
}

// OntologyConfig identifies the default ontology.
type OntologyConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Name      string `yaml:"name" json:"name"`
	// Optional pinned content hash; empty means latest uploaded
	ContentHash string `yaml:"content_hash" json:"content_hash"`
	// Local path loaded at startup when set
	Path string `yaml:"path" json:"path"`
}

// StorageConfig selects and configures the blob storage backend.
type StorageConfig struct {
	// minio, cos or local
	Driver string `yaml:"driver" json:"driver"`
	Minio  struct {
		Endpoint  string `yaml:"endpoint" json:"endpoint"`
		AccessKey string `yaml:"access_key" json:"access_key"`
		SecretKey string `yaml:"secret_key" json:"secret_key"`
		Bucket    string `yaml:"bucket" json:"bucket"`
		UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	} `yaml:"minio" json:"minio"`
	Cos struct {
		BucketURL string `yaml:"bucket_url" json:"bucket_url"`
		SecretID  string `yaml:"secret_id" json:"secret_id"`
		SecretKey string `yaml:"secret_key" json:"secret_key"`
	} `yaml:"cos" json:"cos"`
	Local struct {
		BaseDir string `yaml:"base_dir" json:"base_dir"`
	} `yaml:"local" json:"local"`
}

// VectorDatabaseConfig selects the class index backend.
type VectorDatabaseConfig struct {
	// memory, postgres or elasticsearch
	Driver        string `yaml:"driver" json:"driver"`
	DSN           string `yaml:"dsn" json:"dsn"`
	Elasticsearch struct {
		Addresses []string `yaml:"addresses" json:"addresses"`
		Username  string   `yaml:"username" json:"username"`
		Password  string   `yaml:"password" json:"password"`
		Index     string   `yaml:"index" json:"index"`
	} `yaml:"elasticsearch" json:"elasticsearch"`
}

// RedisConfig configures the embedding cache.
type RedisConfig struct {
	Address  string        `yaml:"address" json:"address"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// AsynqConfig configures the background task queue.
type AsynqConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	Concurrency  int           `yaml:"concurrency" json:"concurrency"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// Neo4jConfig configures the optional graph sink.
type Neo4jConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	URI      string `yaml:"uri" json:"uri"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ClaimsConfig configures claim persistence and export.
type ClaimsConfig struct {
	// Postgres DSN of the claim repository; empty disables persistence
	DSN string `yaml:"dsn" json:"dsn"`
	// Directory parquet exports are written to; empty disables export
	ExportDir string `yaml:"export_dir" json:"export_dir"`
}

// envVarRegex matches ${ENV_VAR} references in the raw config file
var envVarRegex = regexp.MustCompile(`\${([^}]+)}`)

// LoadConfig reads config.yaml from the usual locations, expands ${ENV_VAR}
// references and decodes the tree.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/semweave/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	configFileContent, err := os.ReadFile(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("error reading config file content: %w", err)
	}

	// Expand ${ENV_VAR}; unset variables keep the literal reference
	result := envVarRegex.ReplaceAllStringFunc(string(configFileContent), func(match string) string {
		envVar := match[2 : len(match)-1]
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})

	if err := viper.ReadConfig(strings.NewReader(result)); err != nil {
		return nil, fmt.Errorf("error re-reading expanded config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills the gaps a partial config file leaves.
func applyDefaults(cfg *Config) {
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Extraction == nil {
		cfg.Extraction = &ExtractionConfig{}
	}
	if cfg.Extraction.Chunking.MaxChunkSize == 0 {
		cfg.Extraction.Chunking.MaxChunkSize = 2000
		cfg.Extraction.Chunking.PreserveSentences = true
	}
	if cfg.Extraction.GroundingThreshold == 0 {
		cfg.Extraction.GroundingThreshold = 0.8
	}
	if cfg.Extraction.CandidateClassLimit == 0 {
		cfg.Extraction.CandidateClassLimit = 100
	}
	if cfg.Extraction.BaseNamespace == "" {
		cfg.Extraction.BaseNamespace = "http://semweave.io/graph/"
	}
	if cfg.Extraction.DefaultConfidence == 0 {
		cfg.Extraction.DefaultConfidence = 0.7
	}
	if cfg.Validation == nil {
		cfg.Validation = &ValidationConfig{}
	}
	if cfg.Validation.MaxIterations == 0 {
		cfg.Validation.MaxIterations = 5
	}
	if cfg.Retry == nil {
		schedule := llm.DefaultRetrySchedule()
		cfg.Retry = &schedule
	}
}

// RunConfig projects the configured defaults into a per-run config.
func (c *Config) RunConfig() *types.RunConfig {
	run := &types.RunConfig{
		Chunking:            c.Extraction.Chunking,
		Concurrency:         c.Extraction.Concurrency,
		GroundingThreshold:  c.Extraction.GroundingThreshold,
		CandidateClassLimit: c.Extraction.CandidateClassLimit,
	}
	if c.Ontology != nil {
		run.Ontology = types.OntologyRef{
			Namespace:   c.Ontology.Namespace,
			Name:        c.Ontology.Name,
			ContentHash: c.Ontology.ContentHash,
		}
	}
	return run
}
