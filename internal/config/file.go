package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML overlay. Environment variables win;
// the file only fills values the environment left at their defaults.
type FileConfig struct {
	Port string `yaml:"port"`

	Secrets struct {
		JWT      string `yaml:"jwt"`
		Internal string `yaml:"internal"`
	} `yaml:"secrets"`

	Limits struct {
		UploadBytes int64 `yaml:"uploadBytes"`
		FetchBytes  int64 `yaml:"fetchBytes"`
		DecodeBytes int64 `yaml:"decodeBytes"`
	} `yaml:"limits"`

	Fetch struct {
		Timeout  time.Duration `yaml:"timeout"`
		Attempts int           `yaml:"attempts"`
		Delay    time.Duration `yaml:"delay"`
	} `yaml:"fetch"`

	RateLimit struct {
		Every time.Duration `yaml:"every"`
		Burst int           `yaml:"burst"`
	} `yaml:"rateLimit"`

	Blobs struct {
		MaxAge          time.Duration `yaml:"maxAge"`
		CleanupInterval time.Duration `yaml:"cleanupInterval"`
	} `yaml:"blobs"`
}

// LoadFile reads the YAML overlay at path.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// Apply overlays file values into cfg for fields the environment left at
// the built-in default.
func Apply(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	defaults := Defaults()

	if cfg.Port == defaults.Port && fc.Port != "" {
		cfg.Port = fc.Port
	}
	if cfg.JWTSecret == "" && fc.Secrets.JWT != "" {
		cfg.JWTSecret = fc.Secrets.JWT
	}
	if cfg.InternalSharedSecret == "" && fc.Secrets.Internal != "" {
		cfg.InternalSharedSecret = fc.Secrets.Internal
	}

	if cfg.MaxUploadBytes == defaults.MaxUploadBytes && fc.Limits.UploadBytes > 0 {
		cfg.MaxUploadBytes = fc.Limits.UploadBytes
	}
	if cfg.MaxFetchBytes == defaults.MaxFetchBytes && fc.Limits.FetchBytes > 0 {
		cfg.MaxFetchBytes = fc.Limits.FetchBytes
	}
	if cfg.MaxDecodeBytes == defaults.MaxDecodeBytes && fc.Limits.DecodeBytes > 0 {
		cfg.MaxDecodeBytes = fc.Limits.DecodeBytes
	}

	if cfg.FetchTimeout == defaults.FetchTimeout && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if cfg.FetchAttempts == defaults.FetchAttempts && fc.Fetch.Attempts > 0 {
		cfg.FetchAttempts = fc.Fetch.Attempts
	}
	if cfg.FetchDelay == defaults.FetchDelay && fc.Fetch.Delay > 0 {
		cfg.FetchDelay = fc.Fetch.Delay
	}

	if cfg.RateLimitEvery == defaults.RateLimitEvery && fc.RateLimit.Every > 0 {
		cfg.RateLimitEvery = fc.RateLimit.Every
	}
	if cfg.RateLimitBurst == defaults.RateLimitBurst && fc.RateLimit.Burst > 0 {
		cfg.RateLimitBurst = fc.RateLimit.Burst
	}

	if cfg.BlobMaxAge == defaults.BlobMaxAge && fc.Blobs.MaxAge > 0 {
		cfg.BlobMaxAge = fc.Blobs.MaxAge
	}
	if cfg.CleanupInterval == defaults.CleanupInterval && fc.Blobs.CleanupInterval > 0 {
		cfg.CleanupInterval = fc.Blobs.CleanupInterval
	}
}
