// Command modelfetch downloads a single file over HTTP and saves it to disk.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nightconcept/modelfetch/internal/cli/fetch"
	"github.com/nightconcept/modelfetch/internal/cli/self"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

func main() {
	app := &cli.App{
		Name:    "modelfetch",
		Usage:   "Download a model file over HTTP and save it to disk",
		Version: version,
		Flags:   fetch.Flags(),
		Action:  fetch.Action,
		Commands: []*cli.Command{
			fetch.NewFetchCommand(),
			self.NewSelfCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
