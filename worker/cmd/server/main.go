// Package main runs the reference worker on a local port.
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/logging"
	"go.viam.com/boofbridge/worker"
)

// buildFingerprint is set at link time with -ldflags "-X main.buildFingerprint=...".
var buildFingerprint = "dev"

var logger = logging.NewLogger("worker")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Port  utils.NetPortFlag `flag:"0,required,usage=port to listen on"`
	Host  string            `flag:"host,default=127.0.0.1,usage=address to listen on"`
	Debug bool              `flag:"debug,usage=enable debug logging"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Debug {
		logger.SetLevel(logging.DEBUG)
	}

	lis, err := net.Listen("tcp", net.JoinHostPort(argsParsed.Host, fmt.Sprint(int(argsParsed.Port))))
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	w := worker.New(buildFingerprint, logger.Sublogger("dispatch"))
	defer func() {
		err = multierr.Combine(err, w.Close())
	}()

	server := bridge.NewServer(w, logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.OnShutdown(cancel)

	serveErr := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		serveErr <- server.Serve(lis)
	})
	logger.Infow("worker listening", "address", lis.Addr().String(), "pid", os.Getpid(),
		"fingerprint", buildFingerprint)

	select {
	case <-ctx.Done():
		server.Stop()
		return nil
	case err := <-serveErr:
		return err
	}
}
