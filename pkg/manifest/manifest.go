package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/calvoindustrial/companydata/pkg/digest"
)

// ErrUnavailable marks a manifest that is missing or unparsable. Callers
// check it with errors.Is; no per-file report exists when it fires.
var ErrUnavailable = errors.New("manifest unavailable")

// SchemaVersion is stamped into every manifest this code writes.
const SchemaVersion = "1.0"

const (
	DirName  = "manifests"
	FileName = "manifest.json"
)

// File kinds, derived from the top-level directory of each entry path.
const (
	KindMaster   = "master"
	KindSnapshot = "snapshot"
	KindRules    = "rules"
	KindAudit    = "audit"
	KindUnknown  = "unknown"
)

type FileEntry struct {
	Path    string `json:"path"`
	SHA256  string `json:"sha256"`
	Kind    string `json:"kind"`
	Company string `json:"company,omitempty"`
}

type Manifest struct {
	PackageName   string      `json:"package_name"`
	SchemaVersion string      `json:"schema_version"`
	GeneratedAt   time.Time   `json:"generated_at"`
	Files         []FileEntry `json:"files"`
}

// Location returns the manifest path inside a package root.
func Location(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// Load reads and validates the manifest under root. A missing or unparsable
// manifest, or one with malformed entries, wraps ErrUnavailable.
func Load(root string) (*Manifest, error) {
	loc := Location(root)
	b, err := os.ReadFile(loc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, loc, err)
	}

	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnavailable, loc, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &m, nil
}

// Write atomically replaces the manifest under root: the JSON is written to
// a temp file in the same directory and renamed over the target, so a crash
// mid-write leaves the previous manifest intact.
func (m *Manifest) Write(root string) error {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	b = append(b, '\n')

	f, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp manifest: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, FileName)); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// Validate checks every entry for a safe relative path and a plausible
// digest. Entry order is preserved as written; it carries no meaning.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Files))
	for _, e := range m.Files {
		if err := ValidateEntryPath(e.Path); err != nil {
			return err
		}
		if !digest.ValidHex(e.SHA256) {
			return fmt.Errorf("entry %s: bad sha256 %q", e.Path, e.SHA256)
		}
		if seen[e.Path] {
			return fmt.Errorf("entry %s listed twice", e.Path)
		}
		seen[e.Path] = true
	}
	return nil
}

// Lookup returns the entry for a package-relative path.
func (m *Manifest) Lookup(rel string) (FileEntry, bool) {
	for _, e := range m.Files {
		if e.Path == rel {
			return e, true
		}
	}
	return FileEntry{}, false
}

// ValidateEntryPath rejects paths that could escape the package root:
// absolute paths, traversal components, null bytes, backslash separators.
func ValidateEntryPath(p string) error {
	if p == "" {
		return fmt.Errorf("empty entry path")
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("entry path contains null byte")
	}
	if strings.ContainsRune(p, '\\') {
		return fmt.Errorf("entry path must use /: %s", p)
	}
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return fmt.Errorf("absolute entry path: %s", p)
	}
	cleaned := path.Clean(p)
	if cleaned != p {
		return fmt.Errorf("entry path not canonical: %s", p)
	}
	if cleaned == "." || cleaned == ".." ||
		strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("entry path escapes package root: %s", p)
	}
	return nil
}

// KindForPath classifies an entry by its top-level package directory.
func KindForPath(rel string) string {
	top, _, _ := strings.Cut(rel, "/")
	switch top {
	case "master_data":
		return KindMaster
	case "snapshots":
		return KindSnapshot
	case "rules":
		return KindRules
	case "audit":
		return KindAudit
	}
	return KindUnknown
}
