package fetch

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/nightconcept/modelfetch/internal/core/config"
	"github.com/nightconcept/modelfetch/internal/core/downloader"
)

// Flags returns the flags understood by Action. They are shared by the root
// command and the explicit "fetch" subcommand.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "Source URL to download",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Destination file path (its directory must already exist)",
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Streaming buffer size in bytes",
			DefaultText: fmt.Sprint(config.DefaultChunkSize),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   fmt.Sprintf("Path to a TOML config file (defaults to ./%s when present)", config.ConfigFileName),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose output",
		},
	}
}

// NewFetchCommand creates the "fetch" subcommand. Running the app without a
// subcommand does the same thing.
func NewFetchCommand() *cli.Command {
	return &cli.Command{
		Name:   "fetch",
		Usage:  "Downloads the configured file and saves it to disk",
		Flags:  Flags(),
		Action: Action,
	}
}

// Action resolves the configuration, runs a single download and reports the
// outcome with one console line.
func Action(c *cli.Context) error {
	verbose := c.Bool("verbose")
	failColor := color.New(color.FgRed).SprintFunc()
	successColor := color.New(color.FgGreen).SprintFunc()

	cfg, err := resolveConfig(c)
	if err != nil {
		return cli.Exit(failColor(fmt.Sprintf("Error: %v", err)), 1)
	}

	if verbose {
		_, _ = fmt.Fprintf(c.App.Writer, "Resolved configuration:\n")
		_, _ = fmt.Fprintf(c.App.Writer, "  Source URL: %s\n", cfg.URL)
		_, _ = fmt.Fprintf(c.App.Writer, "  Destination: %s\n", cfg.Destination)
		_, _ = fmt.Fprintf(c.App.Writer, "  Chunk Size: %d\n", cfg.ChunkSize)
		_, _ = fmt.Fprintf(c.App.Writer, "Downloading from %s...\n", cfg.URL)
	}

	err = downloader.FetchAndSave(c.Context, cfg.URL, cfg.Destination, downloader.Options{
		ChunkSize: cfg.ChunkSize,
	})
	switch {
	case err == nil:
		_, _ = fmt.Fprintln(c.App.Writer, successColor(fmt.Sprintf("File downloaded and saved successfully to %s.", cfg.Destination)))
		return nil
	case errors.Is(err, downloader.ErrHTTP):
		return cli.Exit(failColor(fmt.Sprintf("Error downloading the file: %v", err)), 1)
	default:
		cause := err
		var fetchErr *downloader.Error
		if errors.As(err, &fetchErr) && fetchErr.Err != nil {
			cause = fetchErr.Err
		}
		return cli.Exit(failColor(fmt.Sprintf("Error writing the file to %s: %v", cfg.Destination, cause)), 1)
	}
}

// resolveConfig layers defaults, the config file and explicitly set flags.
func resolveConfig(c *cli.Context) (*config.FetchConfig, error) {
	var cfg *config.FetchConfig
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFetchConfig(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		loaded, err := config.LoadFetchConfig(config.ConfigFileName)
		switch {
		case err == nil:
			cfg = loaded
		case os.IsNotExist(err):
			cfg = config.Default()
		default:
			return nil, fmt.Errorf("loading config %s: %w", config.ConfigFileName, err)
		}
	}

	if c.IsSet("url") {
		cfg.URL = c.String("url")
	}
	if c.IsSet("output") {
		cfg.Destination = c.String("output")
	}
	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
