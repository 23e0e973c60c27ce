package self

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/urfave/cli/v2"
)

// DefaultRepoSlug is the GitHub repository releases are fetched from.
const DefaultRepoSlug = "nightconcept/modelfetch"

// Release describes the newest published version of the binary.
type Release struct {
	Version      *semver.Version
	URL          string
	AssetURL     string
	ReleaseNotes string

	raw *selfupdate.Release
}

// Updater finds and applies releases. The GitHub implementation is used
// outside of tests.
type Updater interface {
	DetectLatest(ctx context.Context, slug string) (*Release, bool, error)
	UpdateTo(ctx context.Context, rel *Release, execPath string) error
}

type githubUpdater struct {
	updater *selfupdate.Updater
}

func newGitHubUpdater() (Updater, error) {
	// For GitHub Enterprise, EnterpriseBaseURL would be set here.
	ghSource, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating GitHub source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source: ghSource,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing updater: %w", err)
	}
	return &githubUpdater{updater: updater}, nil
}

func (g *githubUpdater) DetectLatest(ctx context.Context, slug string) (*Release, bool, error) {
	latest, found, err := g.updater.DetectLatest(ctx, selfupdate.ParseSlug(slug))
	if err != nil || !found {
		return nil, found, err
	}
	v, err := semver.NewVersion(latest.Version())
	if err != nil {
		return nil, false, fmt.Errorf("parsing release version '%s': %w", latest.Version(), err)
	}
	return &Release{
		Version:      v,
		URL:          latest.URL,
		AssetURL:     latest.AssetURL,
		ReleaseNotes: latest.ReleaseNotes,
		raw:          latest,
	}, true, nil
}

func (g *githubUpdater) UpdateTo(ctx context.Context, rel *Release, execPath string) error {
	if rel.raw == nil {
		return fmt.Errorf("release %s was not detected from GitHub", rel.Version)
	}
	return g.updater.UpdateTo(ctx, rel.raw, execPath)
}

// NewSelfCommand creates a new command for self-management.
func NewSelfCommand() *cli.Command {
	return newSelfCommand(newGitHubUpdater)
}

func newSelfCommand(newUpdater func() (Updater, error)) *cli.Command {
	return &cli.Command{
		Name:  "self",
		Usage: "Manage the modelfetch binary itself",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Update modelfetch to the latest version",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Automatically confirm the update",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Check for available updates without installing",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: fmt.Sprintf("Specify a custom GitHub update source as 'owner/repo' (e.g., '%s')", DefaultRepoSlug),
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Enable verbose output",
					},
				},
				Action: updateAction(newUpdater),
			},
		},
	}
}

// ParseCurrentVersion accepts versions written as vX.Y.Z or X.Y.Z.
func ParseCurrentVersion(version string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return nil, fmt.Errorf("parsing current version '%s': %w. Ensure version is like vX.Y.Z or X.Y.Z", version, err)
	}
	return v, nil
}

// ParseRepoSlug returns DefaultRepoSlug for an empty value and otherwise
// requires the 'owner/repo' form.
func ParseRepoSlug(source string) (string, error) {
	if source == "" {
		return DefaultRepoSlug, nil
	}
	parts := strings.Split(source, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid --source format. Expected 'owner/repo', got: %s", source)
	}
	return source, nil
}

func updateAction(newUpdater func() (Updater, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		out := c.App.Writer
		currentVersionStr := c.App.Version
		verbose := c.Bool("verbose")

		if verbose {
			_, _ = fmt.Fprintf(out, "modelfetch current version: %s\n", currentVersionStr)
		}

		currentSemVer, err := ParseCurrentVersion(currentVersionStr)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error %v.", err), 1)
		}
		if verbose {
			_, _ = fmt.Fprintf(out, "Parsed current semantic version: %s\n", currentSemVer.String())
		}

		repoSlug, err := ParseRepoSlug(c.String("source"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("%v.", err), 1)
		}
		if verbose {
			_, _ = fmt.Fprintf(out, "Using GitHub source: %s\n", repoSlug)
		}

		updater, err := newUpdater()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to initialize updater: %v", err), 1)
		}

		if verbose {
			_, _ = fmt.Fprintln(out, "Checking for latest version...")
		}

		latest, found, err := updater.DetectLatest(c.Context, repoSlug)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error detecting latest version: %v", err), 1)
		}
		if !found {
			_, _ = fmt.Fprintf(out, "Current version %s is already the latest.\n", currentVersionStr)
			return nil
		}

		if verbose {
			_, _ = fmt.Fprintf(out, "Latest version detected: %s (Release URL: %s)\n", latest.Version, latest.URL)
			if latest.AssetURL != "" {
				_, _ = fmt.Fprintf(out, "Asset URL: %s\n", latest.AssetURL)
			}
			if latest.ReleaseNotes != "" {
				_, _ = fmt.Fprintf(out, "Release Notes:\n%s\n", latest.ReleaseNotes)
			}
		}

		if !latest.Version.GreaterThan(currentSemVer) {
			_, _ = fmt.Fprintf(out, "Current version %s is already the latest or newer.\n", currentVersionStr)
			return nil
		}

		_, _ = fmt.Fprintf(out, "New version available: %s (current: %s)\n", latest.Version, currentVersionStr)

		if c.Bool("check") {
			return nil
		}

		if !c.Bool("yes") {
			_, _ = fmt.Fprint(out, "Do you want to update? (y/N): ")
			input, _ := bufio.NewReader(c.App.Reader).ReadString('\n')
			if strings.TrimSpace(strings.ToLower(input)) != "y" {
				_, _ = fmt.Fprintln(out, "Update cancelled.")
				return nil
			}
		}

		_, _ = fmt.Fprintf(out, "Updating to %s...\n", latest.Version)
		execPath, err := os.Executable()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Could not get executable path: %v", err), 1)
		}
		if verbose {
			_, _ = fmt.Fprintf(out, "Current executable path: %s\n", execPath)
		}

		if err := updater.UpdateTo(c.Context, latest, execPath); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to update: %v", err), 1)
		}

		_, _ = fmt.Fprintf(out, "Successfully updated to version %s.\n", latest.Version)
		return nil
	}
}
