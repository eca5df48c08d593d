// Package patch summarizes the unified-diff artifact a winning task leaves
// behind.
package patch

import (
	"fmt"
	"os"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

type FileChange struct {
	Path    string
	Hunks   int
	Added   int
	Deleted int
}

type Summary struct {
	Files   []FileChange
	Added   int
	Deleted int
}

// Summarize parses a patch.diff file. An empty or missing patch yields an
// empty summary, not an error; a malformed one is reported.
func Summarize(path string) (*Summary, error) {
	if path == "" {
		return &Summary{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Summary{}, nil
		}
		return nil, fmt.Errorf("read patch: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return &Summary{}, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff(b)
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}

	sum := &Summary{}
	for _, fd := range fileDiffs {
		stat := fd.Stat()
		fc := FileChange{
			Path:    changedPath(fd),
			Hunks:   len(fd.Hunks),
			Added:   int(stat.Added + stat.Changed),
			Deleted: int(stat.Deleted + stat.Changed),
		}
		sum.Files = append(sum.Files, fc)
		sum.Added += fc.Added
		sum.Deleted += fc.Deleted
	}
	return sum, nil
}

// changedPath strips the a/ b/ prefixes git puts on diff headers.
func changedPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "b/")
	name = strings.TrimPrefix(name, "a/")
	return name
}

func (s *Summary) String() string {
	if len(s.Files) == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d file(s) changed, +%d/-%d lines", len(s.Files), s.Added, s.Deleted)
}
