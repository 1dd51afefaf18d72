package relver

// ValidateArgument parses a version supplied on the command line. It does no
// history lookup and never fills in a looked-up revision.
func ValidateArgument(raw string) (Version, error) {
	v, err := Parse(raw)
	if err != nil {
		return Version{}, &InvalidArgumentError{Raw: raw, Err: err}
	}
	return v, nil
}
