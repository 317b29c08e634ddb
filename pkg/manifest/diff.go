package manifest

import (
	"sort"

	"github.com/calvoindustrial/companydata/pkg/digest"
)

// DiffResult lists the paths that differ between two package generations.
type DiffResult struct {
	Added   []string
	Removed []string
	Changed []string
}

func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Changed) == 0
}

// Diff compares two manifests by declared digest. Because exports are
// deterministic, identical digests mean identical file content, so the
// result is exactly what changed between the two generations.
func Diff(old, cur *Manifest) DiffResult {
	var result DiffResult

	prev := make(map[string]FileEntry, len(old.Files))
	for _, e := range old.Files {
		prev[e.Path] = e
	}

	curSeen := make(map[string]bool, len(cur.Files))
	for _, e := range cur.Files {
		curSeen[e.Path] = true
		pe, exists := prev[e.Path]
		switch {
		case !exists:
			result.Added = append(result.Added, e.Path)
		case !digest.Equal(pe.SHA256, e.SHA256):
			result.Changed = append(result.Changed, e.Path)
		}
	}

	for path := range prev {
		if !curSeen[path] {
			result.Removed = append(result.Removed, path)
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Changed)
	return result
}
