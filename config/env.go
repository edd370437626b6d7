package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"go.viam.com/boofbridge/logging"
)

// Environment variables that override the configuration file.
const (
	EnvJavaPort       = "BOOFBRIDGE_JAVA_PORT"
	EnvPythonPort     = "BOOFBRIDGE_PYTHON_PORT"
	EnvConnectTimeout = "BOOFBRIDGE_CONNECT_TIMEOUT"
	EnvMmapDir        = "BOOFBRIDGE_MMAP_DIR"
)

// ApplyEnvironment overrides config values with any set environment variables.
func (c *Config) ApplyEnvironment(logger logging.Logger) error {
	if v, ok := os.LookupEnv(EnvJavaPort); ok {
		port, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", EnvJavaPort)
		}
		logger.Debugw("java port overridden from environment", "port", port)
		c.Bridge.JavaPort = port
	}
	if v, ok := os.LookupEnv(EnvPythonPort); ok {
		port, err := cast.ToIntE(v)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", EnvPythonPort)
		}
		logger.Debugw("python port overridden from environment", "port", port)
		c.Bridge.PythonPort = port
	}
	if v, ok := os.LookupEnv(EnvConnectTimeout); ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", EnvConnectTimeout)
		}
		c.Worker.ConnectTimeout = d.String()
	}
	if v, ok := os.LookupEnv(EnvMmapDir); ok && v != "" {
		c.SharedMemory.Dir = v
	}
	return nil
}
