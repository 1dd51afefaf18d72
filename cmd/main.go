package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jaxxstorm/relver"
	"gopkg.in/yaml.v3"
)

// Version will be set by build process
var Version = "dev"

type Globals struct {
	Output  string `short:"o" default:"text" enum:"text,json,yaml" help:"Output format (text, json, yaml)"`
	Verbose bool   `short:"v" env:"RELVER_VERBOSE" help:"Enable debug logging"`
}

type CLI struct {
	Globals

	Validate ValidateCmd `cmd:"" help:"Validate a version or release tag string"`
	Derive   DeriveCmd   `cmd:"" help:"Derive the next release version from tag history"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

type ValidateCmd struct {
	Version string `arg:"" help:"Version (24.5.1.1) or release tag (v24.5.1.1-stable) to validate"`
}

type DeriveCmd struct {
	Commitish     string `arg:"" optional:"" default:"HEAD" help:"Git commitish to analyze"`
	Repo          string `short:"r" env:"RELVER_REPO" help:"Repository path (default: current directory)"`
	Revisions     string `short:"R" required:"" env:"RELVER_REVISIONS" type:"existingfile" help:"Revision table (text or YAML)"`
	TagPattern    string `default:"v*.*.*.*-*" help:"Glob that release tags must match"`
	NewTagPattern string `default:"*-new" help:"Glob matching placeholder tags"`

	LatestTag          string `group:"snapshot" help:"Use this latest tag instead of reading Git"`
	CommitsSinceLatest int    `group:"snapshot" help:"Commits since the latest tag"`
	NewTag             string `group:"snapshot" help:"Last non-placeholder tag (default: --latest-tag)"`
	CommitsSinceNew    int    `group:"snapshot" help:"Commits since the last non-placeholder tag"`

	Format  string `short:"f" default:"version" enum:"version,tag,semver,abbreviated,docker" help:"Text output format"`
	Flavour string `default:"none" enum:"none,new,testing,prestable,stable,lts" help:"Flavour suffix for --format=tag"`
}

type VersionCmd struct{}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("relver"),
		kong.Description("Derive calendar-style release versions from Git tags and validate version strings"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (g *Globals) logger() *slog.Logger {
	level := slog.LevelInfo
	if g.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// encode writes v to stdout as JSON or YAML. It reports false for text output.
func (g *Globals) encode(v interface{}) (bool, error) {
	switch g.Output {
	case "json":
		return true, json.NewEncoder(os.Stdout).Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

func (c *ValidateCmd) Run(g *Globals) error {
	version, err := relver.ValidateArgument(c.Version)
	if err != nil {
		return err
	}

	g.logger().Debug("validated version",
		slog.String("input", c.Version),
		slog.String("flavour", version.Flavour.String()))

	if ok, err := g.encode(version); ok || err != nil {
		return err
	}

	fmt.Println(validateOutput(version))
	return nil
}

func validateOutput(version relver.Version) string {
	if version.Flavour == relver.FlavourNone {
		return version.Numeric()
	}
	return version.Numeric() + " " + version.Flavour.String()
}

func (c *DeriveCmd) Run(g *Globals) error {
	logger := g.logger()

	revisions, err := relver.LoadRevisionFile(c.Revisions)
	if err != nil {
		return fmt.Errorf("loading revisions: %w", err)
	}
	logger.Debug("loaded revision table",
		slog.String("path", c.Revisions),
		slog.Int("records", revisions.Len()))

	snapshot, err := c.snapshot(logger)
	if err != nil {
		return err
	}

	version, err := relver.Derive(snapshot, revisions)
	if err != nil {
		return fmt.Errorf("deriving version: %w", err)
	}

	formats := relver.Render(version)
	if ok, err := g.encode(formats); ok || err != nil {
		return err
	}

	output, err := c.derivedOutput(version, formats)
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func (c *DeriveCmd) snapshot(logger *slog.Logger) (relver.Snapshot, error) {
	if c.LatestTag != "" {
		snapshot := relver.Snapshot{
			LatestTag:          c.LatestTag,
			CommitsSinceLatest: c.CommitsSinceLatest,
			NewTag:             c.NewTag,
			CommitsSinceNew:    c.CommitsSinceNew,
		}
		if snapshot.NewTag == "" {
			snapshot.NewTag = snapshot.LatestTag
			snapshot.CommitsSinceNew = snapshot.CommitsSinceLatest
		}
		logger.Debug("using snapshot from flags", slog.Any("snapshot", snapshot))
		return snapshot, nil
	}

	repoPath := c.Repo
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return relver.Snapshot{}, fmt.Errorf("getting current directory: %w", err)
		}
	}

	repo, err := relver.OpenRepository(repoPath)
	if err != nil {
		return relver.Snapshot{}, fmt.Errorf("opening repository %s: %w", repoPath, err)
	}

	snapshot, err := relver.ReadSnapshot(relver.Options{
		Repository:    repo,
		Commitish:     plumbing.Revision(c.Commitish),
		TagPattern:    c.TagPattern,
		NewTagPattern: c.NewTagPattern,
		Logger:        logger,
	})
	if err != nil {
		return relver.Snapshot{}, fmt.Errorf("reading tag history: %w", err)
	}
	return snapshot, nil
}

func (c *DeriveCmd) derivedOutput(version relver.Version, formats *relver.Formats) (string, error) {
	switch strings.ToLower(c.Format) {
	case "tag":
		var flavour relver.Flavour
		if err := flavour.UnmarshalText([]byte(c.Flavour)); err != nil {
			return "", err
		}
		return version.Describe(flavour), nil
	case "semver":
		return formats.SemVer, nil
	case "abbreviated":
		return formats.Abbreviated, nil
	case "docker":
		return strings.Join(formats.Docker, "\n"), nil
	default:
		return formats.Version, nil
	}
}

func (c *VersionCmd) Run(g *Globals) error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "relver",
	}

	if ok, err := g.encode(versionInfo); ok || err != nil {
		return err
	}

	fmt.Printf("relver version %s\n", Version)
	return nil
}
