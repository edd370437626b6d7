// Package session owns the connection to a worker: it finds or launches the worker, checks that
// its build matches, sets up shared memory and tears everything down again.
package session

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/logging"
	"go.viam.com/boofbridge/shmem"
	"go.viam.com/boofbridge/transfer"
	"go.viam.com/boofbridge/wire"
)

// Entry point calls issued by the session.
const (
	methodGetBuildDate   = "getBuildDate"
	methodSetBuildDate   = "setBuildDate"
	methodInitializeMmap = "initializeMmap"
	methodSetMaxThreads  = "setMaxThreads"
	methodGetMaxThreads  = "getMaxThreads"
	methodGetProcessID   = "getProcessID"
	methodShutdown       = "shutdown"

	fieldMmap = "mmap"
)

var (
	// ErrFingerprintMismatch is returned when a running worker was built from a different
	// version than this client.
	ErrFingerprintMismatch = errors.WithMessage(wire.ErrProtocolMismatch, "worker build fingerprint mismatch")
	// ErrConnectTimeout is returned when a launched worker never answers.
	ErrConnectTimeout = errors.New("timed out waiting for worker")
	// ErrNoWorker is returned when no worker answers and there is none to launch.
	ErrNoWorker = errors.New("no worker running and no worker path configured")
	// ErrNoSharedMemory is returned by Channel before InitSharedMemory.
	ErrNoSharedMemory = errors.New("shared memory not initialized")
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateFailed
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// A Session is a connection to one worker and, optionally, one shared memory region.
type Session struct {
	mu     sync.Mutex
	id     uuid.UUID
	opts   Options
	root   logging.Logger
	logger logging.Logger
	state  State

	bridge    bridge.Bridge
	process   Process
	channel   *transfer.Channel
	workerPID int64
}

// Open connects to the worker described by opts, launching it when nothing answers, and sets up
// shared memory when opts.SharedMemoryMB is positive.
func Open(ctx context.Context, opts Options, logger logging.Logger) (*Session, error) {
	s := &Session{
		id:     uuid.New(),
		opts:   opts.withDefaults(),
		root:   logger,
		logger: logger.Sublogger("session"),
		state:  StateUninitialized,
	}
	if err := s.connect(ctx); err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		return nil, multierr.Combine(err, s.release())
	}
	if s.opts.SharedMemoryMB > 0 {
		if err := s.InitSharedMemory(ctx, s.opts.SharedMemoryMB); err != nil {
			return nil, multierr.Combine(err, s.Close())
		}
	}
	return s, nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.logger.Debugw("session state", "id", s.id, "from", s.state, "to", state)
	s.state = state
	s.mu.Unlock()
}

func (s *Session) connect(ctx context.Context) error {
	s.setState(StateConnecting)
	address := s.opts.address()

	b, err := s.opts.Dialer(ctx, address, s.logger)
	if err == nil {
		err = b.Ping(ctx)
		if err == nil {
			err = s.checkFingerprint(ctx, b)
			if err == nil {
				s.logger.Infow("using running worker", "address", address)
				s.bridge = b
				return s.finishConnect(ctx)
			}
			if errors.Is(err, ErrFingerprintMismatch) {
				s.logger.Warnw("stopping stale worker", "address", address, "error", err)
				if _, shutdownErr := b.Invoke(ctx, bridge.EntryPoint, methodShutdown); shutdownErr != nil {
					s.logger.Debugw("stale worker shutdown failed", "error", shutdownErr)
				}
			}
		}
		utils.UncheckedError(b.Close())
	}

	if s.opts.WorkerPath == "" {
		return errors.Wrapf(ErrNoWorker, "%s: %v", address, err)
	}
	s.logger.Infow("launching worker", "path", s.opts.WorkerPath, "address", address)
	s.process, err = s.opts.Launcher(ctx, s.opts.processConfig(), s.logger)
	if err != nil {
		return errors.Wrapf(err, "launching %s", s.opts.WorkerPath)
	}
	if s.bridge, err = s.poll(ctx); err != nil {
		return err
	}
	if _, err := s.bridge.Invoke(ctx, bridge.EntryPoint, methodSetBuildDate,
		bridge.StringValue(s.opts.BuildFingerprint)); err != nil {
		return errors.Wrap(err, "setting worker build fingerprint")
	}
	return s.finishConnect(ctx)
}

func (s *Session) checkFingerprint(ctx context.Context, b bridge.Bridge) error {
	v, err := b.Invoke(ctx, bridge.EntryPoint, methodGetBuildDate)
	if err != nil {
		return err
	}
	got, err := v.AsString()
	if err != nil {
		return err
	}
	if got != s.opts.BuildFingerprint {
		return errors.Wrapf(ErrFingerprintMismatch, "worker has %q, want %q", got, s.opts.BuildFingerprint)
	}
	return nil
}

// poll redials the launched worker until it answers a ping or the connect timeout elapses.
func (s *Session) poll(ctx context.Context) (bridge.Bridge, error) {
	address := s.opts.address()
	deadline := s.opts.Clock.Now().Add(s.opts.ConnectTimeout)
	for attempt := 1; ; attempt++ {
		b, err := s.opts.Dialer(ctx, address, s.logger)
		if err == nil {
			if err = b.Ping(ctx); err == nil {
				s.logger.Debugw("worker answered", "address", address, "attempts", attempt)
				return b, nil
			}
			utils.UncheckedError(b.Close())
		}
		if !s.opts.Clock.Now().Before(deadline) {
			return nil, errors.Wrapf(ErrConnectTimeout, "%s after %v: %v", address, s.opts.ConnectTimeout, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.opts.Clock.After(s.opts.PollInterval):
		}
	}
}

func (s *Session) finishConnect(ctx context.Context) error {
	v, err := s.bridge.Invoke(ctx, bridge.EntryPoint, methodGetProcessID)
	if err != nil {
		return errors.Wrap(err, "fetching worker process id")
	}
	pid, err := v.AsInt()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.workerPID = pid
	s.mu.Unlock()
	s.setState(StateConnected)
	s.logger.Infow("connected to worker", "session", s.id, "address", s.opts.address(), "pid", pid)
	return nil
}

// InitSharedMemory asks the worker to create a region of sizeMB megabytes, maps it locally and
// builds the transfer channel over it. A previous region is released first.
func (s *Session) InitSharedMemory(ctx context.Context, sizeMB int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return errors.Errorf("cannot initialize shared memory while %v", s.state)
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warnw("failed to close previous region", "path", s.channel.Region().Path(), "error", err)
		}
		s.channel = nil
	}

	path := shmem.DefaultPath(s.opts.SharedMemoryDir, os.Getpid())
	if _, err := s.bridge.Invoke(ctx, bridge.EntryPoint, methodInitializeMmap,
		bridge.StringValue(path), bridge.IntValue(int64(sizeMB))); err != nil {
		return errors.Wrap(err, "initializing worker shared memory")
	}
	region, err := shmem.Open(path)
	if err != nil {
		return err
	}
	v, err := s.bridge.GetField(ctx, bridge.EntryPoint, fieldMmap)
	if err != nil {
		return multierr.Combine(errors.Wrap(err, "fetching shared memory view"), region.Close())
	}
	view, err := v.AsHandle()
	if err != nil {
		return multierr.Combine(err, region.Close())
	}
	s.channel = transfer.NewChannel(region, s.bridge, view, s.logger.Sublogger("transfer"))
	s.logger.Infow("shared memory ready", "path", path, "bytes", region.Capacity())
	return nil
}

// ID returns the id of this session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bridge returns the session's bridge. It fails once the session is no longer connected.
func (s *Session) Bridge() (bridge.Bridge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.bridge == nil {
		return nil, errors.Wrapf(bridge.ErrConnection, "session %v", s.state)
	}
	return s.bridge, nil
}

// WorkerPID returns the process id the worker reported.
func (s *Session) WorkerPID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workerPID
}

// Channel returns the transfer channel over the session's shared memory.
func (s *Session) Channel() (*transfer.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return nil, ErrNoSharedMemory
	}
	return s.channel, nil
}

// SetMaxThreads sets the number of threads the worker may use.
func (s *Session) SetMaxThreads(ctx context.Context, n int) error {
	b, err := s.Bridge()
	if err != nil {
		return err
	}
	_, err = b.Invoke(ctx, bridge.EntryPoint, methodSetMaxThreads, bridge.IntValue(int64(n)))
	return err
}

// MaxThreads returns the number of threads the worker may use.
func (s *Session) MaxThreads(ctx context.Context) (int, error) {
	b, err := s.Bridge()
	if err != nil {
		return 0, err
	}
	v, err := b.Invoke(ctx, bridge.EntryPoint, methodGetMaxThreads)
	if err != nil {
		return 0, err
	}
	n, err := v.AsInt()
	return int(n), err
}

// Close closes the bridge, stops a worker this session launched and unmaps shared memory.
// Calling Close again does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	s.state = StateTerminated
	s.mu.Unlock()
	s.logger.Infow("closing session", "session", s.id)
	return s.release()
}

func (s *Session) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.bridge != nil {
		err = multierr.Combine(err, s.bridge.Close())
		s.bridge = nil
	}
	if s.process != nil {
		err = multierr.Combine(err, s.process.Stop())
		s.process = nil
	}
	if s.channel != nil {
		// Blocks until a transfer in flight returns.
		err = multierr.Combine(err, s.channel.Close())
		s.channel = nil
	}
	return err
}

// Reinit closes this session and opens a new one with opts.
func (s *Session) Reinit(ctx context.Context, opts Options) (*Session, error) {
	if err := s.Close(); err != nil {
		s.logger.Warnw("error closing session before reinit", "error", err)
	}
	return Open(ctx, opts, s.root)
}

// CloseOnSignal closes the session when one of sigs arrives, defaulting to SIGINT and SIGTERM.
// The returned function stops watching.
func (s *Session) CloseOnSignal(ctx context.Context, sigs ...os.Signal) func() {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	utils.PanicCapturingGo(func() {
		defer close(done)
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			s.logger.Infow("closing session on signal", "signal", sig.String())
			if err := s.Close(); err != nil {
				s.logger.Errorw("error closing session", "error", err)
			}
		case <-ctx.Done():
		}
	})
	return func() {
		cancel()
		<-done
	}
}

// Kill asks the worker listening per opts to shut down.
func Kill(ctx context.Context, opts Options, logger logging.Logger) error {
	opts = opts.withDefaults()
	b, err := opts.Dialer(ctx, opts.address(), logger)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(b.Close)
	if err := b.Ping(ctx); err != nil {
		return errors.Wrapf(err, "no worker at %s", opts.address())
	}
	_, err = b.Invoke(ctx, bridge.EntryPoint, methodShutdown)
	return err
}
