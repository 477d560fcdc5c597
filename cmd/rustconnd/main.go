// Command rustconnd is the process entrypoint for spec.md §6: it wires
// every component into a long-lived app.App and keeps it running until a
// shutdown signal arrives. It takes no arguments beyond the usual
// UI-toolkit flags (there are none of those here, since this module
// carries no GUI of its own — see DESIGN.md's note on Component K) and
// exits 0 on a clean shutdown.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/app"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.WithError(err).Error("rustconnd exited with an error")
		os.Exit(1)
	}
}

// run builds the App and blocks until ctx is canceled or a shutdown
// signal arrives, mirroring lib/teleterm/teleterm.go's Serve: construct,
// spawn a signal-watching goroutine, wait, tear down.
func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := app.New(app.Config{})
	if err != nil {
		return trace.Wrap(err, "starting rustconnd")
	}

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case <-ctx.Done():
			log.Info("context closed, stopping rustconnd")
		case sig := <-c:
			log.Infof("captured %s, stopping rustconnd", sig)
		}
		a.Shutdown()
	}()

	<-shutdown
	return nil
}
