package relver

import (
	"regexp"
	"strconv"
	"strings"
)

const tagRefPrefix = "refs/tags/"

var digitsRe = regexp.MustCompile(`^[0-9]+$`)

// Parse accepts either a plain "major.minor.patch.revision" string or a
// release tag such as "v24.5.1.2088-stable" (optionally prefixed with
// "refs/tags/"). Input starting with "v" or "refs/tags/" is parsed as a tag.
func Parse(input string) (Version, error) {
	if input == "" {
		return Version{}, malformed(input, "", ReasonEmpty)
	}
	if strings.HasPrefix(input, tagRefPrefix) || strings.HasPrefix(input, "v") {
		return ParseTag(input)
	}
	return ParsePlain(input)
}

// ParsePlain parses exactly four dot-separated non-negative integers. The
// fourth component is carried as the revision.
func ParsePlain(input string) (Version, error) {
	if input == "" {
		return Version{}, malformed(input, "", ReasonEmpty)
	}
	if body, suffix, ok := strings.Cut(input, "-"); ok && body != "" {
		return Version{}, malformed(input, "-"+suffix, ReasonFlavourWithoutTag)
	}

	nums, err := parseComponents(input, input)
	if err != nil {
		return Version{}, err
	}

	return Version{
		Major:       nums[0],
		Minor:       nums[1],
		Patch:       nums[2],
		Revision:    nums[3],
		HasRevision: true,
	}, nil
}

// ParseTag parses the release tag grammar: an optional "refs/tags/", a "v",
// a two-digit major, three more numeric components and a flavour suffix.
func ParseTag(input string) (Version, error) {
	if input == "" {
		return Version{}, malformed(input, "", ReasonEmpty)
	}

	s := strings.TrimPrefix(input, tagRefPrefix)
	if !strings.HasPrefix(s, "v") {
		return Version{}, malformed(input, s, ReasonMissingPrefix)
	}
	s = s[1:]

	body, token, ok := strings.Cut(s, "-")
	if !ok {
		return Version{}, malformed(input, s, ReasonMissingFlavour)
	}

	nums, err := parseComponents(input, body)
	if err != nil {
		return Version{}, err
	}

	// calendar majors are always written with two digits
	major, _, _ := strings.Cut(body, ".")
	if len(major) != 2 {
		return Version{}, malformed(input, major, ReasonMajorDigits)
	}

	flavour, ok := ParseFlavour(token)
	if !ok {
		return Version{}, malformed(input, token, ReasonUnknownFlavour)
	}

	return Version{
		Major:       nums[0],
		Minor:       nums[1],
		Patch:       nums[2],
		Revision:    nums[3],
		HasRevision: true,
		Flavour:     flavour,
	}, nil
}

func parseComponents(input, body string) ([4]int, error) {
	var nums [4]int

	parts := strings.Split(body, ".")
	if len(parts) != len(nums) {
		return nums, malformed(input, body, ReasonComponentCount)
	}

	for i, part := range parts {
		if !digitsRe.MatchString(part) {
			return nums, malformed(input, part, ReasonNonNumeric)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nums, malformed(input, part, ReasonNonNumeric)
		}
		nums[i] = n
	}

	return nums, nil
}

func malformed(input, part string, reason Reason) *MalformedVersionError {
	return &MalformedVersionError{Input: input, Part: part, Reason: reason}
}
