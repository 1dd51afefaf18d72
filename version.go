package relver

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/blang/semver"
)

// Formats contains the renderings of a derived version that release
// pipelines consume
type Formats struct {
	Version     string   `json:"version" yaml:"version"`
	Tag         string   `json:"tag" yaml:"tag"`
	SemVer      string   `json:"semver" yaml:"semver"`
	Abbreviated string   `json:"abbreviated" yaml:"abbreviated"`
	Revision    *int     `json:"revision" yaml:"revision"`
	Docker      []string `json:"docker" yaml:"docker"`
}

// String renders the release identity major.minor.patch.tweak.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Tweak)
}

// Numeric renders the four parsed components major.minor.patch.revision.
func (v Version) Numeric() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Revision)
}

// Abbreviated renders major.minor.
func (v Version) Abbreviated() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Describe renders the tag that would mark this version with flavour f, e.g.
// "v24.5.1.415-testing". FlavourNone leaves the suffix off.
func (v Version) Describe(f Flavour) string {
	tag := fmt.Sprintf("v%02d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Tweak)
	if f == FlavourNone {
		return tag
	}
	return tag + "-" + f.String()
}

// SemVer converts v to a semantic version carrying the tweak as build
// metadata.
func (v Version) SemVer() semver.Version {
	return semver.Version{
		Major: uint64(v.Major),
		Minor: uint64(v.Minor),
		Patch: uint64(v.Patch),
		Build: []string{strconv.Itoa(v.Tweak)},
	}
}

// Render builds every output format for v.
func Render(v Version) *Formats {
	formats := &Formats{
		Version:     v.String(),
		Tag:         v.Describe(v.Flavour),
		SemVer:      v.SemVer().String(),
		Abbreviated: v.Abbreviated(),
		Docker: []string{
			v.String(),
			fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch),
			v.Abbreviated(),
		},
	}
	if v.HasRevision {
		revision := v.Revision
		formats.Revision = &revision
	}
	return formats
}

// Calculate reads the tag history of opts.Repository and derives the next
// release version from it.
func Calculate(opts Options) (*Formats, Version, error) {
	if opts.Repository == nil {
		return nil, Version{}, fmt.Errorf("repository is required")
	}
	if opts.Revisions == nil {
		return nil, Version{}, fmt.Errorf("revision table is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	snapshot, err := ReadSnapshot(opts)
	if err != nil {
		return nil, Version{}, fmt.Errorf("reading tag history: %w", err)
	}

	version, err := Derive(snapshot, opts.Revisions)
	if err != nil {
		return nil, Version{}, fmt.Errorf("deriving version: %w", err)
	}

	logger.Debug("derived version",
		slog.String("version", version.String()),
		slog.Int("revision", version.Revision))

	return Render(version), version, nil
}
