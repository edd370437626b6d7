// Package config defines the boofbridge configuration file and its environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Defaults used when a field is absent from the file and the environment.
const (
	DefaultHost           = "127.0.0.1"
	DefaultJavaPort       = 25333
	DefaultPythonPort     = 25334
	DefaultConnectTimeout = 5 * time.Second
	DefaultSharedMemoryMB = 2
)

// Config is the top level configuration of a boofbridge client.
type Config struct {
	ConfigFilePath string `json:"-"`

	Bridge           BridgeConfig       `json:"bridge"`
	Worker           WorkerConfig       `json:"worker"`
	SharedMemory     SharedMemoryConfig `json:"shared_memory"`
	BuildFingerprint string             `json:"build_fingerprint,omitempty"`
	Debug            bool               `json:"debug,omitempty"`
}

// BridgeConfig locates the worker's RPC endpoint.
type BridgeConfig struct {
	Host string `json:"host"`
	// JavaPort is the port the worker listens on.
	JavaPort int `json:"java_port"`
	// PythonPort is the callback port handed to the worker.
	PythonPort int `json:"python_port"`
}

// WorkerConfig describes how to launch a worker when none is running.
type WorkerConfig struct {
	Path           string   `json:"path,omitempty"`
	Args           []string `json:"args,omitempty"`
	ConnectTimeout string   `json:"connect_timeout,omitempty"`

	connectTimeout time.Duration
}

// SharedMemoryConfig sizes the shared memory region. A zero size skips its setup.
type SharedMemoryConfig struct {
	SizeMB int    `json:"size_mb"`
	Dir    string `json:"dir,omitempty"`
}

// Default returns a configuration holding every default.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Host:       DefaultHost,
			JavaPort:   DefaultJavaPort,
			PythonPort: DefaultPythonPort,
		},
		Worker: WorkerConfig{
			ConnectTimeout: DefaultConnectTimeout.String(),
			connectTimeout: DefaultConnectTimeout,
		},
		SharedMemory: SharedMemoryConfig{
			SizeMB: DefaultSharedMemoryMB,
			Dir:    os.TempDir(),
		},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Bridge.Validate("bridge"); err != nil {
		return err
	}
	if err := c.Worker.Validate("worker"); err != nil {
		return err
	}
	return c.SharedMemory.Validate("shared_memory")
}

// Validate ensures all parts of the config are valid.
func (c *BridgeConfig) Validate(path string) error {
	if c.Host == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "host")
	}
	if err := validatePort(c.JavaPort); err != nil {
		return goutils.NewConfigValidationError(path, errors.Wrap(err, "java_port"))
	}
	if err := validatePort(c.PythonPort); err != nil {
		return goutils.NewConfigValidationError(path, errors.Wrap(err, "python_port"))
	}
	if c.JavaPort == c.PythonPort {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("java_port and python_port must differ, both are %d", c.JavaPort))
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return errors.Errorf("port %d out of range", port)
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *WorkerConfig) Validate(path string) error {
	if c.ConnectTimeout == "" {
		c.connectTimeout = DefaultConnectTimeout
		return nil
	}
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil {
		return goutils.NewConfigValidationError(path, errors.Wrap(err, "connect_timeout"))
	}
	if d <= 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("connect_timeout must be positive, got %v", d))
	}
	c.connectTimeout = d
	return nil
}

// Timeout returns the validated connect timeout.
func (c *WorkerConfig) Timeout() time.Duration {
	if c.connectTimeout == 0 {
		return DefaultConnectTimeout
	}
	return c.connectTimeout
}

// Validate ensures all parts of the config are valid.
func (c *SharedMemoryConfig) Validate(path string) error {
	if c.SizeMB < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("size_mb must not be negative, got %d", c.SizeMB))
	}
	return nil
}

// Address returns the worker's host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Bridge.Host, c.Bridge.JavaPort)
}
