// Package main is the entry point of the back office web service.
package main

import (
	"log/slog"
	"os"

	"github.com/inmobiliaria/backoffice/cmd/backoffice-web/daemon"
	"github.com/inmobiliaria/backoffice/internal/common/cli"
)

func main() {
	a, err := daemon.New()
	if err != nil {
		slog.Error("Could not create the web service", "err", err)
		os.Exit(1)
	}
	os.Exit(cli.Run(a))
}
