package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/boofbridge/logging"
)

// Read reads a config from the given file. ${VAR} references in the file are expanded from the
// environment before decoding.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Default()
	cfg.ConfigFilePath = originalPath
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	return process(ctx, cfg, logger)
}

// FromEnvironment returns the default config with environment overrides applied.
func FromEnvironment(ctx context.Context, logger logging.Logger) (*Config, error) {
	return process(ctx, Default(), logger)
}

func process(ctx context.Context, cfg *Config, logger logging.Logger) (*Config, error) {
	if err := cfg.ApplyEnvironment(logger); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	logger.CDebugw(ctx, "config loaded", "path", cfg.ConfigFilePath, "address", cfg.Address(),
		"worker", cfg.Worker.Path, "shared_memory_mb", cfg.SharedMemory.SizeMB)
	return cfg, nil
}
