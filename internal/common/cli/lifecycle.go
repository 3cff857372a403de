package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/spf13/cobra"
)

// Daemon is a service command driven by Run.
type Daemon interface {
	Run() error
	UsageError() bool
	Hup() bool
	Quit()
}

// Run executes d and returns the process exit code: 0 on success, 2 on a usage error and 1 otherwise.
// SIGINT and SIGTERM quit d. SIGHUP quits it only when d.Hup reports so.
func Run(d Daemon) int {
	stop := forwardSignals(d)
	err := d.Run()
	stop()

	if err == nil {
		return 0
	}
	slog.Error(err.Error())
	if d.UsageError() {
		return 2
	}
	return 1
}

func forwardSignals(d Daemon) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				slog.Debug("Stopped forwarding signals")
				return
			case sig := <-sigs:
				if sig == syscall.SIGHUP && !d.Hup() {
					continue
				}
				slog.Info("Quitting on signal", "signal", sig.String())
				d.Quit()
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
		wg.Wait()
	}
}

// AddVersionCmd adds a version subcommand printing name and the build version.
func AddVersionCmd(root *cobra.Command, name string) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version of %s and exit", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, constants.Version)
			return err
		},
	})
}
