package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/utils/pexec"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/config"
	"go.viam.com/boofbridge/logging"
)

const defaultPollInterval = 100 * time.Millisecond

// buildFingerprint identifies this client build. It is set at link time with
// -ldflags "-X go.viam.com/boofbridge/session.buildFingerprint=..." and must match the worker's.
var buildFingerprint = "dev"

// BuildFingerprint returns the fingerprint this client was built with.
func BuildFingerprint() string {
	return buildFingerprint
}

// Process is a launched worker.
type Process interface {
	Start(ctx context.Context) error
	Stop() error
}

// A Dialer connects a bridge to the worker listening at address.
type Dialer func(ctx context.Context, address string, logger logging.Logger) (bridge.Bridge, error)

// A Launcher starts a worker process described by cfg.
type Launcher func(ctx context.Context, cfg pexec.ProcessConfig, logger logging.Logger) (Process, error)

// Options control how a Session finds or launches its worker.
type Options struct {
	Host       string
	JavaPort   int
	PythonPort int

	// WorkerPath is the worker executable, launched when no worker answers. The java port is
	// appended to WorkerArgs as the last argument.
	WorkerPath string
	WorkerArgs []string
	// BuildFingerprint is compared against the worker's build date. Empty uses the fingerprint
	// linked into this client.
	BuildFingerprint string

	ConnectTimeout time.Duration
	PollInterval   time.Duration

	// SharedMemoryMB, when positive, sets up shared memory as part of Open.
	SharedMemoryMB  int
	SharedMemoryDir string

	Dialer   Dialer
	Launcher Launcher
	Clock    clock.Clock
}

// NewOptions returns options taken from cfg.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Host:             cfg.Bridge.Host,
		JavaPort:         cfg.Bridge.JavaPort,
		PythonPort:       cfg.Bridge.PythonPort,
		WorkerPath:       cfg.Worker.Path,
		WorkerArgs:       cfg.Worker.Args,
		BuildFingerprint: cfg.BuildFingerprint,
		ConnectTimeout:   cfg.Worker.Timeout(),
		SharedMemoryMB:   cfg.SharedMemory.SizeMB,
		SharedMemoryDir:  cfg.SharedMemory.Dir,
	}
}

func (opts Options) withDefaults() Options {
	if opts.Host == "" {
		opts.Host = config.DefaultHost
	}
	if opts.JavaPort == 0 {
		opts.JavaPort = config.DefaultJavaPort
	}
	if opts.PythonPort == 0 {
		opts.PythonPort = config.DefaultPythonPort
	}
	if opts.BuildFingerprint == "" {
		opts.BuildFingerprint = buildFingerprint
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = config.DefaultConnectTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Dialer == nil {
		opts.Dialer = dial
	}
	if opts.Launcher == nil {
		opts.Launcher = launch
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return opts
}

func (opts Options) address() string {
	return fmt.Sprintf("%s:%d", opts.Host, opts.JavaPort)
}

func (opts Options) processConfig() pexec.ProcessConfig {
	args := append(append([]string{}, opts.WorkerArgs...), strconv.Itoa(opts.JavaPort))
	return pexec.ProcessConfig{
		ID:          "boofbridge_worker",
		Name:        opts.WorkerPath,
		Args:        args,
		Environment: map[string]string{config.EnvPythonPort: strconv.Itoa(opts.PythonPort)},
		Log:         true,
	}
}

func dial(ctx context.Context, address string, logger logging.Logger) (bridge.Bridge, error) {
	return bridge.Dial(ctx, address, logger)
}

func launch(ctx context.Context, cfg pexec.ProcessConfig, logger logging.Logger) (Process, error) {
	proc := pexec.NewManagedProcess(cfg, logger)
	if err := proc.Start(ctx); err != nil {
		return nil, err
	}
	return proc, nil
}
