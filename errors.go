package relver

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedVersion      = errors.New("malformed version")
	ErrMalformedTag          = errors.New("malformed tag")
	ErrRevisionNotFound      = errors.New("revision not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrDuplicateRevision     = errors.New("duplicate revision record")
	ErrInvalidRevisionRecord = errors.New("invalid revision record")
	ErrInvalidSnapshot       = errors.New("invalid tag history snapshot")
	ErrNoReleaseTag          = errors.New("no release tag found")
)

// Reason says which grammar rule a version string broke.
type Reason string

const (
	ReasonEmpty             Reason = "empty version"
	ReasonComponentCount    Reason = "expected exactly four dot-separated components"
	ReasonNonNumeric        Reason = "component is not a non-negative integer"
	ReasonFlavourWithoutTag Reason = "flavour suffix requires the v-prefixed tag form"
	ReasonMajorDigits       Reason = "tag major version must be exactly two digits"
	ReasonUnknownFlavour    Reason = "flavour must be one of testing, prestable, stable, lts, new"
	ReasonMissingFlavour    Reason = "tag is missing a -flavour suffix"
	ReasonMissingPrefix     Reason = "tag must start with v"
	ReasonNewTagIsNew       Reason = "last release tag cannot carry the new flavour"
)

// MalformedVersionError reports input that matches neither version grammar.
type MalformedVersionError struct {
	Input  string
	Part   string
	Reason Reason
}

func (e *MalformedVersionError) Error() string {
	if e.Part == "" || e.Part == e.Input {
		return fmt.Sprintf("malformed version %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("malformed version %q: %s: %q", e.Input, e.Reason, e.Part)
}

func (e *MalformedVersionError) Is(target error) bool {
	return target == ErrMalformedVersion
}

// MalformedTagError reports a history tag that is not a release tag.
type MalformedTagError struct {
	Tag string
	Err error
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("malformed tag %q: %v", e.Tag, e.Err)
}

func (e *MalformedTagError) Is(target error) bool {
	return target == ErrMalformedTag
}

func (e *MalformedTagError) Unwrap() error {
	return e.Err
}

// RevisionNotFoundError means the revision table has no baseline for a version.
type RevisionNotFoundError struct {
	Major int
	Minor int
}

func (e *RevisionNotFoundError) Error() string {
	return fmt.Sprintf("revision not found for %d.%d", e.Major, e.Minor)
}

func (e *RevisionNotFoundError) Is(target error) bool {
	return target == ErrRevisionNotFound
}

// InvalidArgumentError wraps a parser failure with the raw command line argument.
type InvalidArgumentError struct {
	Raw string
	Err error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %v", e.Raw, e.Err)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.Err
}
