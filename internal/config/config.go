// Package config loads process configuration from FAIRSHARE_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dukerupert/fairshare/internal/backup"
)

// Server configures the fairshare server.
type Server struct {
	Port             string        `env:"FAIRSHARE_PORT"              envDefault:"8080"`
	DBPath           string        `env:"FAIRSHARE_DB_PATH"           envDefault:"fairshare.db"`
	LogLevel         string        `env:"FAIRSHARE_LOG_LEVEL"         envDefault:"info"`
	TokenSecret      string        `env:"FAIRSHARE_TOKEN_SECRET,required,notEmpty"`
	TokenTTL         time.Duration `env:"FAIRSHARE_TOKEN_TTL"         envDefault:"720h"`
	Roster           string        `env:"FAIRSHARE_ROSTER"`
	Timezone         string        `env:"FAIRSHARE_TIMEZONE"          envDefault:"Local"`
	VAPIDPublicKey   string        `env:"FAIRSHARE_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey  string        `env:"FAIRSHARE_VAPID_PRIVATE_KEY"`
	PruneAt          string        `env:"FAIRSHARE_PRUNE_AT"          envDefault:"03:30"`
	RequestRetention time.Duration `env:"FAIRSHARE_REQUEST_RETENTION" envDefault:"2160h"`
	TrustedProxies   []string      `env:"FAIRSHARE_TRUSTED_PROXIES"   envSeparator:","`

	BackupAt         string        `env:"FAIRSHARE_BACKUP_AT"         envDefault:"04:00"`
	BackupPrefix     string        `env:"FAIRSHARE_BACKUP_PREFIX"     envDefault:"fairshare/"`
	BackupPassphrase string        `env:"FAIRSHARE_BACKUP_PASSPHRASE"`
	BackupRetention  time.Duration `env:"FAIRSHARE_BACKUP_RETENTION"  envDefault:"720h"`
	S3Endpoint       string        `env:"FAIRSHARE_S3_ENDPOINT"`
	S3Bucket         string        `env:"FAIRSHARE_S3_BUCKET"`
	S3Region         string        `env:"FAIRSHARE_S3_REGION"         envDefault:"us-east-1"`
	S3AccessKey      string        `env:"FAIRSHARE_S3_ACCESS_KEY"`
	S3SecretKey      string        `env:"FAIRSHARE_S3_SECRET_KEY"`
}

// Client configures the command line client.
type Client struct {
	URL      string        `env:"FAIRSHARE_URL"   envDefault:"http://localhost:8080"`
	Token    string        `env:"FAIRSHARE_TOKEN"`
	Timeout  time.Duration `env:"FAIRSHARE_TIMEOUT" envDefault:"45s"`
	LogLevel string        `env:"FAIRSHARE_LOG_LEVEL" envDefault:"warn"`
}

// Load parses the server configuration and resolves the timezone.
func Load() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return Server{}, err
	}
	if cfg.RequestRetention <= 0 {
		return Server{}, fmt.Errorf("FAIRSHARE_REQUEST_RETENTION must be positive")
	}
	return cfg, nil
}

// LoadClient parses the client configuration.
func LoadClient() (Client, error) {
	var cfg Client
	if err := env.Parse(&cfg); err != nil {
		return Client{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Location returns the household calendar zone.
func (c Server) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Backup returns the snapshot configuration. Backups stay disabled until the
// bucket, both keys and a passphrase are set.
func (c Server) Backup() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		},
		Prefix:     c.BackupPrefix,
		Passphrase: c.BackupPassphrase,
		Retention:  c.BackupRetention,
	}
}

// PushEnabled reports whether both VAPID keys are set.
func (c Server) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}
