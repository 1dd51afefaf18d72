package relver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RevisionRecord maps one (major, minor) pair to its protocol revision.
type RevisionRecord struct {
	Major    int `yaml:"major"`
	Minor    int `yaml:"minor"`
	Revision int `yaml:"revision"`
}

type revisionKey struct {
	major int
	minor int
}

// RevisionTable is a read-only (major, minor) -> revision mapping. It is safe
// for concurrent lookups once built.
type RevisionTable struct {
	entries map[revisionKey]int
}

// NewRevisionTable builds a table from records, rejecting duplicate pairs and
// negative numbers.
func NewRevisionTable(records ...RevisionRecord) (*RevisionTable, error) {
	table := &RevisionTable{entries: make(map[revisionKey]int, len(records))}
	for _, rec := range records {
		if err := table.add(rec); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (t *RevisionTable) add(rec RevisionRecord) error {
	if rec.Major < 0 || rec.Minor < 0 || rec.Revision < 0 {
		return fmt.Errorf("%w: negative value in %d.%d %d",
			ErrInvalidRevisionRecord, rec.Major, rec.Minor, rec.Revision)
	}
	key := revisionKey{major: rec.Major, minor: rec.Minor}
	if _, ok := t.entries[key]; ok {
		return fmt.Errorf("%w: %d.%d", ErrDuplicateRevision, rec.Major, rec.Minor)
	}
	t.entries[key] = rec.Revision
	return nil
}

// Lookup returns the revision for (major, minor). Missing pairs are an error,
// never a zero default.
func (t *RevisionTable) Lookup(major, minor int) (int, error) {
	if t != nil {
		if revision, ok := t.entries[revisionKey{major: major, minor: minor}]; ok {
			return revision, nil
		}
	}
	return 0, &RevisionNotFoundError{Major: major, Minor: minor}
}

// Len returns the number of records in the table.
func (t *RevisionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Records returns a copy of the table ordered by major then minor.
func (t *RevisionTable) Records() []RevisionRecord {
	records := make([]RevisionRecord, 0, t.Len())
	if t == nil {
		return records
	}
	for key, revision := range t.entries {
		records = append(records, RevisionRecord{Major: key.major, Minor: key.minor, Revision: revision})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Major != records[j].Major {
			return records[i].Major < records[j].Major
		}
		return records[i].Minor < records[j].Minor
	})
	return records
}

// LoadRevisionTable reads the plain-text resource format: one
// "MAJOR.MINOR REVISION" record per line. Blank lines and lines starting with
// "#" are ignored.
func LoadRevisionTable(r io.Reader) (*RevisionTable, error) {
	table := &RevisionTable{entries: make(map[revisionKey]int)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := parseRevisionLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := table.add(rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading revision records: %w", err)
	}

	return table, nil
}

func parseRevisionLine(line string) (RevisionRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return RevisionRecord{}, fmt.Errorf("%w: want \"MAJOR.MINOR REVISION\", got %q",
			ErrInvalidRevisionRecord, line)
	}

	majorStr, minorStr, ok := strings.Cut(fields[0], ".")
	if !ok {
		return RevisionRecord{}, fmt.Errorf("%w: version %q is not MAJOR.MINOR",
			ErrInvalidRevisionRecord, fields[0])
	}

	var nums [3]int
	for i, s := range []string{majorStr, minorStr, fields[1]} {
		if !digitsRe.MatchString(s) {
			return RevisionRecord{}, fmt.Errorf("%w: %q is not a non-negative integer",
				ErrInvalidRevisionRecord, s)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return RevisionRecord{}, fmt.Errorf("%w: %q: %v", ErrInvalidRevisionRecord, s, err)
		}
		nums[i] = n
	}

	return RevisionRecord{Major: nums[0], Minor: nums[1], Revision: nums[2]}, nil
}

type revisionFile struct {
	Revisions []RevisionRecord `yaml:"revisions"`
}

// LoadRevisionFile loads a revision table from disk. Files ending in .yaml or
// .yml hold a "revisions" list; anything else uses the plain-text format.
func LoadRevisionFile(path string) (*RevisionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening revision file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc revisionFile
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		table, err := NewRevisionTable(doc.Revisions...)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		return table, nil
	default:
		table, err := LoadRevisionTable(f)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		return table, nil
	}
}
