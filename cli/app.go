// Package cli contains the boofbridge command-line tool.
package cli

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/config"
	"go.viam.com/boofbridge/logging"
	"go.viam.com/boofbridge/session"
	"go.viam.com/boofbridge/transfer"
	"go.viam.com/boofbridge/wire"
	"go.viam.com/boofbridge/worker"
)

// Flags.
const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagJavaPort = "java-port"
	flagWorker   = "worker"
	flagMmapDir  = "mmap-dir"
	flagMemory   = "memory"
	flagCount    = "count"
	flagDOF      = "dof"
)

// closeSignals tear down an open session and any worker it launched.
var closeSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// NewApp returns the boofbridge CLI writing to out and errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "boofbridge",
		Usage:           "drive a boofbridge worker",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.IntFlag{
				Name:  flagJavaPort,
				Usage: "port the worker listens on",
			},
			&cli.StringFlag{
				Name:  flagWorker,
				Usage: "worker executable to launch when none is running",
			},
			&cli.StringFlag{
				Name:  flagMmapDir,
				Usage: "directory for the shared memory file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ping",
				Usage:  "check that a worker is answering",
				Action: PingAction,
			},
			{
				Name:   "kill",
				Usage:  "ask a running worker to shut down",
				Action: KillAction,
			},
			{
				Name:  "roundtrip",
				Usage: "send random tuples to the worker and read them back",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagCount, Value: 10000, Usage: "number of tuples"},
					&cli.IntFlag{Name: flagDOF, Value: 64, Usage: "values per tuple"},
					&cli.IntFlag{Name: flagMemory, Value: config.DefaultSharedMemoryMB, Usage: "shared memory size in MB"},
				},
				Action: RoundTripAction,
			},
			{
				Name:      "image",
				Usage:     "send an image to the worker as grayscale and save what comes back",
				ArgsUsage: "<input> <output>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagMemory, Value: config.DefaultSharedMemoryMB, Usage: "shared memory size in MB"},
				},
				Action: ImageAction,
			},
		},
	}
}

func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("boofbridge")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.WARN)
	}
	return logger
}

// loadConfig reads the --config file, or the defaults, and applies command line overrides.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String(flagConfig); path != "" {
		cfg, err = config.Read(c.Context, path, logger)
	} else {
		cfg, err = config.FromEnvironment(c.Context, logger)
	}
	if err != nil {
		return nil, err
	}
	if c.IsSet(flagJavaPort) {
		cfg.Bridge.JavaPort = c.Int(flagJavaPort)
	}
	if c.IsSet(flagWorker) {
		cfg.Worker.Path = c.String(flagWorker)
	}
	if c.IsSet(flagMmapDir) {
		cfg.SharedMemory.Dir = c.String(flagMmapDir)
	}
	if c.Bool(flagDebug) {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

// openSession opens a session for an action. The returned function closes it; an interrupt
// closes it earlier.
func openSession(c *cli.Context) (*session.Session, func(), error) {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := session.NewOptions(cfg)
	opts.SharedMemoryMB = c.Int(flagMemory)
	ctx := c.Context
	if cfg.Debug {
		ctx = logging.EnableDebugMode(ctx, "")
	}
	s, err := session.Open(ctx, opts, logger)
	if err != nil {
		return nil, nil, err
	}
	stop := s.CloseOnSignal(c.Context, closeSignals...)
	return s, func() {
		stop()
		if err := s.Close(); err != nil {
			logger.Warnw("error closing session", "error", err)
		}
	}, nil
}

// PingAction reports whether a worker answers and which build it runs.
func PingAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	b, err := bridge.Dial(c.Context, cfg.Address(), logger)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(b.Close)

	start := time.Now()
	if err := b.Ping(c.Context); err != nil {
		return errors.Wrapf(err, "no worker at %s", cfg.Address())
	}
	elapsed := time.Since(start)
	v, err := b.Invoke(c.Context, bridge.EntryPoint, worker.MethodGetBuildDate)
	if err != nil {
		return err
	}
	buildDate, err := v.AsString()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "worker at %s answered in %v, build %q (client build %q)\n",
		cfg.Address(), elapsed, buildDate, session.BuildFingerprint())
	return nil
}

// KillAction asks the worker to shut down.
func KillAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	if err := session.Kill(c.Context, session.NewOptions(cfg), logger); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "asked worker at %s to shut down\n", cfg.Address())
	return nil
}

// RoundTripAction sends random tuples to a remote list, reads them back and checks they match.
func RoundTripAction(c *cli.Context) error {
	count, dof := c.Int(flagCount), c.Int(flagDOF)
	if count < 0 || dof < 1 {
		return errors.Errorf("need a non-negative --%s and a positive --%s", flagCount, flagDOF)
	}
	s, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()
	ch, err := s.Channel()
	if err != nil {
		return err
	}

	dist := distuv.Uniform{Min: -1000, Max: 1000}
	tuples := make([][]float64, count)
	for i := range tuples {
		tuples[i] = make([]float64, dof)
		for j := range tuples[i] {
			tuples[i][j] = dist.Rand()
		}
	}

	ctx := c.Context
	b, err := s.Bridge()
	if err != nil {
		return err
	}
	list, err := b.Construct(ctx, worker.ClassArrayList)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := transfer.Send(ctx, ch, wire.TupleF64, list, tuples); err != nil {
		return err
	}
	sent := time.Since(start)
	start = time.Now()
	got, err := transfer.Receive(ctx, ch, wire.TupleF64, list)
	if err != nil {
		return err
	}
	received := time.Since(start)

	if err := compareTuples(tuples, got); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d tuples of %d values: sent in %v, received in %v, %d chunks per direction\n",
		count, dof, sent, received, chunks(ch, wire.TupleF64.ElementSize(dof), count))
	return nil
}

func compareTuples(want, got [][]float64) error {
	if len(got) != len(want) {
		return errors.Errorf("sent %d tuples, received %d", len(want), len(got))
	}
	for i := range want {
		if !floats.Equal(want[i], got[i]) {
			return errors.Errorf("tuple %d differs: sent %v, received %v", i, want[i], got[i])
		}
	}
	return nil
}

func chunks(ch *transfer.Channel, elemSize, count int) int {
	maxPer := transfer.MaxPerChunk(ch.Region().Capacity(), elemSize)
	if count == 0 || maxPer < 1 {
		return 1
	}
	return (count + maxPer - 1) / maxPer
}

// ImageAction sends an image file to the worker as a grayscale image, reads it back and saves it.
func ImageAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: image <input> <output>")
	}
	input, output := c.Args().Get(0), c.Args().Get(1)
	src, err := imaging.Open(input)
	if err != nil {
		return err
	}
	gray := toGray(imaging.Grayscale(src))

	s, closeSession, err := openSession(c)
	if err != nil {
		return err
	}
	defer closeSession()
	ch, err := s.Channel()
	if err != nil {
		return err
	}

	ctx := c.Context
	h, err := transfer.SendGray(ctx, ch, gray, nil)
	if err != nil {
		return err
	}
	back, err := transfer.ReceiveGray(ctx, ch, h)
	if err != nil {
		return err
	}
	if err := imaging.Save(back, output); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: %dx%d via %v\n", output, back.Rect.Dx(), back.Rect.Dy(), h)
	return nil
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}
