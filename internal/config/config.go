// Package config provides types for handling configuration parameters.
package config

import (
	"flag"
	"log"

	"github.com/caarlos0/env/v6"
)

// Config handles server-related constants and parameters.
type Config struct {
	ServerConfig  *ServerConfig
	StorageConfig *StorageConfig
	SecretConfig  *SecretConfig
	BlobConfig    *BlobConfig
	QueueConfig   *QueueConfig
}

// ServerConfig defines default server-related constants and parameters and overwrites them with environment variables.
type ServerConfig struct {
	ServerAddress   string `env:"RUN_ADDRESS"`
	IdentityAddress string `env:"IDENTITY_ADDRESS"`
	SecureCookies   bool   `env:"SECURE_COOKIES"`
}

// StorageConfig retrieves document-store and audit-ledger parameters from environment.
type StorageConfig struct {
	RedisDSN string `env:"REDIS_DSN"`
	AuditDSN string `env:"AUDIT_DATABASE_URI"`
}

// SecretConfig retrieves a secret key for token signing and ciphering.
type SecretConfig struct {
	SecretKey string `env:"SECRET_KEY" envDefault:"kd__82hf_3pq"`
}

// BlobConfig retrieves proof-of-payment blob storage parameters from environment.
type BlobConfig struct {
	BlobDir       string `env:"BLOB_DIR" envDefault:"./blobs"`
	PublicBaseURL string `env:"BLOB_PUBLIC_URL" envDefault:"/blobs"`
}

// QueueConfig defines parallelization parameters for the notification outbox.
type QueueConfig struct {
	WorkerNumber int `env:"N_WORKERS"`
	RetryNumber  int `env:"N_RETRIES"`
}

// NewServerConfig sets up a server configuration.
func NewServerConfig() (*ServerConfig, error) {
	cfg := ServerConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewStorageConfig sets up a storage configuration.
func NewStorageConfig() (*StorageConfig, error) {
	cfg := StorageConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewSecretConfig sets up a secret configuration.
func NewSecretConfig() (*SecretConfig, error) {
	cfg := SecretConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewBlobConfig sets up a blob storage configuration.
func NewBlobConfig() (*BlobConfig, error) {
	cfg := BlobConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewQueueConfig sets up an outbox queueing configuration.
func NewQueueConfig() (*QueueConfig, error) {
	cfg := QueueConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewConfiguration sets up a total configuration.
func NewConfiguration() (*Config, error) {
	serverCfg, err := NewServerConfig()
	if err != nil {
		return nil, err
	}
	storageCfg, err := NewStorageConfig()
	if err != nil {
		return nil, err
	}
	secretCfg, err := NewSecretConfig()
	if err != nil {
		return nil, err
	}
	blobCfg, err := NewBlobConfig()
	if err != nil {
		return nil, err
	}
	queueCfg, err := NewQueueConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		ServerConfig:  serverCfg,
		StorageConfig: storageCfg,
		SecretConfig:  secretCfg,
		BlobConfig:    blobCfg,
		QueueConfig:   queueCfg,
	}, nil
}

// isFlagPassed checks whether the flag was set in CLI
func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// ParseFlags parses command line arguments and stores them
func (c *Config) ParseFlags() {
	a := flag.String("a", ":8080", "Server address")
	i := flag.String("i", "", "Identity provider address (empty for local token verification)")
	r := flag.String("r", "redis://localhost:6379/0", "Redis document store DSN")
	d := flag.String("d", "", "PSQL audit ledger connection DSN (empty disables the audit ledger)")
	n := flag.Int("n", 4, "Number of notification outbox workers")
	t := flag.Int("t", 3, "Number of notification outbox delivery retries")
	flag.Parse()
	// priority: flag -> env -> default flag
	// note that env parsing precedes flag parsing
	if isFlagPassed("a") || c.ServerConfig.ServerAddress == "" {
		c.ServerConfig.ServerAddress = *a
	}
	if isFlagPassed("i") || c.ServerConfig.IdentityAddress == "" {
		c.ServerConfig.IdentityAddress = *i
	}
	if isFlagPassed("r") || c.StorageConfig.RedisDSN == "" {
		c.StorageConfig.RedisDSN = *r
	}
	if isFlagPassed("d") || c.StorageConfig.AuditDSN == "" {
		c.StorageConfig.AuditDSN = *d
	}
	if isFlagPassed("n") || c.QueueConfig.WorkerNumber == 0 {
		c.QueueConfig.WorkerNumber = *n
		if c.QueueConfig.WorkerNumber <= 0 {
			log.Panic("Number of outbox workers must be a positive integer")
		}
	}
	if isFlagPassed("t") || c.QueueConfig.RetryNumber == 0 {
		c.QueueConfig.RetryNumber = *t
	}
}
