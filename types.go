// Package relver derives calendar-style release versions from Git tag history
// and validates version strings supplied on the command line.
package relver

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Flavour is the release classification carried by a tag suffix.
type Flavour int

const (
	// FlavourNone marks a bare numeric version or a derived version.
	FlavourNone Flavour = iota
	// FlavourNew marks a placeholder tag for a version nobody has released yet.
	FlavourNew
	FlavourTesting
	FlavourPrestable
	FlavourStable
	FlavourLTS
)

var flavourTokens = map[Flavour]string{
	FlavourNone:      "",
	FlavourNew:       "new",
	FlavourTesting:   "testing",
	FlavourPrestable: "prestable",
	FlavourStable:    "stable",
	FlavourLTS:       "lts",
}

// ParseFlavour maps an exact, case-sensitive tag suffix to its Flavour.
func ParseFlavour(token string) (Flavour, bool) {
	for f, t := range flavourTokens {
		if f != FlavourNone && t == token {
			return f, true
		}
	}
	return FlavourNone, false
}

// String returns the tag suffix token, or "none" for FlavourNone.
func (f Flavour) String() string {
	if f == FlavourNone {
		return "none"
	}
	if t, ok := flavourTokens[f]; ok {
		return t
	}
	return fmt.Sprintf("Flavour(%d)", int(f))
}

// MarshalText renders the suffix token; FlavourNone renders as empty.
func (f Flavour) MarshalText() ([]byte, error) {
	t, ok := flavourTokens[f]
	if !ok {
		return nil, fmt.Errorf("unknown flavour %d", int(f))
	}
	return []byte(t), nil
}

// UnmarshalText accepts the exact suffix tokens, and empty or "none" for FlavourNone.
func (f *Flavour) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "none" {
		*f = FlavourNone
		return nil
	}
	parsed, ok := ParseFlavour(s)
	if !ok {
		return fmt.Errorf("unknown flavour %q", s)
	}
	*f = parsed
	return nil
}

// Version is an immutable release version tuple. Only Major, Minor, Patch and
// Tweak take part in ordering; Flavour and Revision are metadata.
type Version struct {
	Major int
	Minor int
	Patch int

	// Revision is only meaningful when HasRevision is set
	Revision    int
	HasRevision bool

	Flavour Flavour
	Tweak   int
}

// Compare returns -1, 0 or 1 ordering v against other by major, minor, patch
// and tweak.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
		{v.Tweak, other.Tweak},
	} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

// Less reports whether v orders before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other share major, minor, patch and tweak.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

type versionJSON struct {
	Major    int     `json:"major" yaml:"major"`
	Minor    int     `json:"minor" yaml:"minor"`
	Patch    int     `json:"patch" yaml:"patch"`
	Revision *int    `json:"revision" yaml:"revision"`
	Flavour  Flavour `json:"flavour,omitempty" yaml:"flavour,omitempty"`
	Tweak    int     `json:"tweak" yaml:"tweak"`
}

func (v Version) wire() versionJSON {
	out := versionJSON{
		Major:   v.Major,
		Minor:   v.Minor,
		Patch:   v.Patch,
		Flavour: v.Flavour,
		Tweak:   v.Tweak,
	}
	if v.HasRevision {
		revision := v.Revision
		out.Revision = &revision
	}
	return out
}

// MarshalJSON renders an absent revision as null.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.wire())
}

// MarshalYAML renders an absent revision as null.
func (v Version) MarshalYAML() (interface{}, error) {
	return v.wire(), nil
}

// RevisionLookup resolves the protocol revision for a (major, minor) pair.
type RevisionLookup interface {
	Lookup(major, minor int) (int, error)
}

// Options configures how tag history is read from a repository
type Options struct {
	// Repository is the Git repository to analyze
	Repository *git.Repository

	// Commitish specifies which commit to analyze (default: "HEAD")
	Commitish plumbing.Revision

	// Revisions resolves the protocol revision of the derived version
	Revisions RevisionLookup

	// TagPattern is a glob that release tags must match (default: "v*.*.*.*-*")
	TagPattern string

	// NewTagPattern is a glob matching placeholder tags (default: "*-new")
	NewTagPattern string

	// TagFilter allows filtering which tags to consider
	TagFilter func(string) bool

	// Logger receives debug output about tag selection. Nil discards it.
	Logger *slog.Logger
}
