package relver

import "fmt"

// Snapshot is what the version-control layer knows about the tags nearest to
// a commit. LatestTag is the nearest reachable tag; NewTag is the nearest tag
// that does not carry the "new" flavour.
type Snapshot struct {
	LatestTag          string `json:"latest_tag" yaml:"latest_tag"`
	CommitsSinceLatest int    `json:"commits_since_latest" yaml:"commits_since_latest"`
	NewTag             string `json:"new_tag" yaml:"new_tag"`
	CommitsSinceNew    int    `json:"commits_since_new" yaml:"commits_since_new"`
}

// testingTweakOffset keeps builds on a testing tag from colliding with the
// stable build of the same number.
const testingTweakOffset = 1

// Derive computes the next release version from a tag history snapshot. The
// revision comes from revisions and the result never carries a flavour.
func Derive(snapshot Snapshot, revisions RevisionLookup) (Version, error) {
	if snapshot.CommitsSinceLatest < 0 || snapshot.CommitsSinceNew < 0 {
		return Version{}, fmt.Errorf("%w: negative commit count", ErrInvalidSnapshot)
	}
	if revisions == nil {
		return Version{}, fmt.Errorf("%w: no revision table", ErrInvalidSnapshot)
	}

	latest, err := ParseTag(snapshot.LatestTag)
	if err != nil {
		return Version{}, &MalformedTagError{Tag: snapshot.LatestTag, Err: err}
	}
	base, err := ParseTag(snapshot.NewTag)
	if err != nil {
		return Version{}, &MalformedTagError{Tag: snapshot.NewTag, Err: err}
	}

	var next Version
	switch latest.Flavour {
	case FlavourNew:
		if base.Flavour == FlavourNew {
			return Version{}, &MalformedTagError{
				Tag: snapshot.NewTag,
				Err: malformed(snapshot.NewTag, "new", ReasonNewTagIsNew),
			}
		}
		next = Version{
			Major: base.Major,
			Minor: base.Minor + 1,
			Patch: 1,
			Tweak: snapshot.CommitsSinceNew,
		}
	case FlavourTesting:
		next = Version{
			Major: latest.Major,
			Minor: latest.Minor,
			Patch: latest.Patch,
			Tweak: snapshot.CommitsSinceLatest + testingTweakOffset,
		}
	case FlavourPrestable, FlavourStable, FlavourLTS:
		next = Version{
			Major: latest.Major,
			Minor: latest.Minor,
			Patch: latest.Patch,
			Tweak: snapshot.CommitsSinceLatest,
		}
	case FlavourNone:
		return Version{}, &MalformedTagError{
			Tag: snapshot.LatestTag,
			Err: malformed(snapshot.LatestTag, "", ReasonMissingFlavour),
		}
	default:
		return Version{}, fmt.Errorf("unhandled flavour %v", latest.Flavour)
	}

	revision, err := revisions.Lookup(next.Major, next.Minor)
	if err != nil {
		return Version{}, fmt.Errorf("looking up revision: %w", err)
	}
	next.Revision = revision
	next.HasRevision = true

	return next, nil
}
