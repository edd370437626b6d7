//go:build unix

package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"go.viam.com/boofbridge/session"
)

func TestSessionClosedOnSignal(t *testing.T) {
	prev := closeSignals
	closeSignals = []os.Signal{syscall.SIGUSR1}
	defer func() { closeSignals = prev }()
	port, _ := startWorker(t)

	var state session.State
	app := NewApp(&bytes.Buffer{}, &bytes.Buffer{})
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "wait",
		Flags: []cli.Flag{&cli.IntFlag{Name: flagMemory, Value: 1}},
		Action: func(c *cli.Context) error {
			s, closeSession, err := openSession(c)
			if err != nil {
				return err
			}
			defer closeSession()
			if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
				return err
			}
			deadline := time.Now().Add(5 * time.Second)
			for s.State() != session.StateTerminated && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			state = s.State()
			_, err = s.Channel()
			return err
		},
	})

	err := app.RunContext(context.Background(), []string{
		"boofbridge", "--java-port", fmt.Sprint(port), "--mmap-dir", t.TempDir(), "wait",
	})
	test.That(t, errors.Is(err, session.ErrNoSharedMemory), test.ShouldBeTrue)
	test.That(t, state, test.ShouldEqual, session.StateTerminated)
}
