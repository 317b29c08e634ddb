// Package export builds a company data package from a relational source:
// it fetches every table up front, serializes deterministically, writes
// files atomically, and replaces the manifest last. A failed export never
// leaves a manifest referencing partially written files.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/calvoindustrial/companydata/pkg/digest"
	"github.com/calvoindustrial/companydata/pkg/manifest"
	"github.com/calvoindustrial/companydata/pkg/records"
)

var (
	// ErrSourceQuery marks a failed query against the relational
	// source. Nothing has been written when it fires.
	ErrSourceQuery = errors.New("source query failed")

	// ErrWrite marks a failed destination write. The previous manifest
	// is untouched; the package as declared remains the old generation.
	ErrWrite = errors.New("package write failed")
)

type Exporter struct {
	cfg *Config
	src Source
	log *slog.Logger
}

func New(cfg *Config, src Source, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, src: src, log: logger}
}

// outFile is one serialized package file staged for writing.
type outFile struct {
	rel     string
	data    []byte
	company string
	rows    int
}

// Export runs one full package generation and returns the manifest it
// wrote. Callers must not run two exports against the same root
// concurrently; the exporter is the sole writer of its destination.
func (e *Exporter) Export(ctx context.Context) (*manifest.Manifest, error) {
	runID := uuid.NewString()
	log := e.log.With("run_id", runID, "root", e.cfg.Root)
	started := time.Now()

	files, err := e.fetchAll(ctx, log)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := writeFileAtomic(e.cfg.Root, f.rel, f.data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrWrite, f.rel, err)
		}
		log.Debug("wrote file", "path", f.rel, "bytes", len(f.data), "rows", f.rows)
	}

	man, err := e.buildManifest(files)
	if err != nil {
		return nil, err
	}
	if err := man.Write(e.cfg.Root); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrWrite, err)
	}

	if e.cfg.Audit {
		if err := e.appendAuditLine(runID, man, files); err != nil {
			return nil, fmt.Errorf("%w: audit log: %v", ErrWrite, err)
		}
	}

	log.Info("export complete",
		"files", len(man.Files),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return man, nil
}

// fetchAll runs every configured query and serializes the results. Any
// query failure aborts here, before a single destination write.
func (e *Exporter) fetchAll(ctx context.Context, log *slog.Logger) ([]outFile, error) {
	var files []outFile

	if e.cfg.AssetsSQL != "" {
		rs, err := e.src.Query(ctx, e.cfg.AssetsSQL)
		if err != nil {
			return nil, fmt.Errorf("%w: assets: %v", ErrSourceQuery, err)
		}
		rows := mapAssets(rs)
		data, err := encodeJSON(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, outFile{
			rel: "master_data/assets.json", data: data, rows: len(rows),
		})
	}

	if e.cfg.LocationsSQL != "" {
		rs, err := e.src.Query(ctx, e.cfg.LocationsSQL)
		if err != nil {
			return nil, fmt.Errorf("%w: locations: %v", ErrSourceQuery, err)
		}
		rows := mapLocations(rs)
		data, err := encodeJSON(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, outFile{
			rel: "master_data/locations.json", data: data, rows: len(rows),
		})
	}

	for _, company := range e.companies() {
		companyID := e.cfg.Companies[company]

		rs, err := e.src.Query(ctx, e.cfg.InventorySQL, companyID)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: inventory %s: %v", ErrSourceQuery, company, err,
			)
		}
		rows, err := mapInventory(rs)
		if err != nil {
			return nil, fmt.Errorf("inventory %s: %w", company, err)
		}
		log.Debug("fetched inventory", "company", company, "rows", len(rows))
		snap := records.InventorySnapshot{
			Meta: e.snapshotMeta(company, companyID, records.InventoryColumns, len(rows)),
			Rows: rows,
		}
		data, err := encodeJSON(snap)
		if err != nil {
			return nil, err
		}
		files = append(files, outFile{
			rel:     manifest.SnapshotPath(manifest.SnapshotInventory, company),
			data:    data,
			company: company,
			rows:    len(rows),
		})

		if e.cfg.OrdersSQL == "" {
			continue
		}
		rs, err = e.src.Query(ctx, e.cfg.OrdersSQL, companyID)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: production orders %s: %v", ErrSourceQuery, company, err,
			)
		}
		orderRows, err := mapOrders(rs)
		if err != nil {
			return nil, fmt.Errorf("production orders %s: %w", company, err)
		}
		snap2 := records.OrdersSnapshot{
			Meta: e.snapshotMeta(company, companyID, records.OrderColumns, len(orderRows)),
			Rows: orderRows,
		}
		data, err = encodeJSON(snap2)
		if err != nil {
			return nil, err
		}
		files = append(files, outFile{
			rel:     manifest.SnapshotPath(manifest.SnapshotOrders, company),
			data:    data,
			company: company,
			rows:    len(orderRows),
		})
	}

	return files, nil
}

// companies returns the configured company tokens in stable order.
func (e *Exporter) companies() []string {
	out := make([]string, 0, len(e.cfg.Companies))
	for c := range e.cfg.Companies {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (e *Exporter) snapshotMeta(
	company string,
	companyID int,
	columns []string,
	rowCount int,
) records.SnapshotMeta {
	return records.SnapshotMeta{
		Company:   company,
		CompanyID: companyID,
		Source:    e.cfg.SourceName,
		RowCount:  rowCount,
		Columns:   columns,
	}
}

// buildManifest declares every file this run wrote, plus any authored
// rules files already under the root. Rules are hand-maintained rather
// than exported, but consumers read them through the hub, so they must
// stay under hash verification.
func (e *Exporter) buildManifest(files []outFile) (*manifest.Manifest, error) {
	man := &manifest.Manifest{
		PackageName:   e.cfg.PackageName,
		SchemaVersion: manifest.SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
	}
	for _, f := range files {
		man.Files = append(man.Files, manifest.FileEntry{
			Path:    f.rel,
			SHA256:  digest.Bytes(f.data),
			Kind:    manifest.KindForPath(f.rel),
			Company: f.company,
		})
	}

	rules, err := e.rulesEntries()
	if err != nil {
		return nil, err
	}
	man.Files = append(man.Files, rules...)

	if err := man.Validate(); err != nil {
		return nil, fmt.Errorf("built invalid manifest: %w", err)
	}
	return man, nil
}

func (e *Exporter) rulesEntries() ([]manifest.FileEntry, error) {
	dir := filepath.Join(e.cfg.Root, "rules")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan rules: %w", err)
	}

	var out []manifest.FileEntry
	buf := make([]byte, 1<<20)
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		rel := "rules/" + de.Name()
		sum, err := digest.File(filepath.Join(dir, de.Name()), buf)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", rel, err)
		}
		out = append(out, manifest.FileEntry{
			Path:   rel,
			SHA256: sum,
			Kind:   manifest.KindRules,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

type auditLine struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	PackageName string         `json:"package_name"`
	FileCount   int            `json:"file_count"`
	RowCounts   map[string]int `json:"row_counts"`
}

func (e *Exporter) appendAuditLine(
	runID string,
	man *manifest.Manifest,
	files []outFile,
) error {
	counts := make(map[string]int, len(files))
	for _, f := range files {
		counts[f.rel] = f.rows
	}
	line := auditLine{
		RunID:       runID,
		GeneratedAt: man.GeneratedAt,
		PackageName: man.PackageName,
		FileCount:   len(man.Files),
		RowCounts:   counts,
	}
	b, err := json.Marshal(line)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	dir := filepath.Join(e.cfg.Root, "audit")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(
		filepath.Join(dir, "export_log.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return err
	}
	_, writeErr := f.Write(b)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// encodeJSON is the one serialization every package file goes through:
// two-space indent, struct-declaration key order, trailing newline.
// Identical values encode to identical bytes, which is what makes the
// manifest digests usable for change detection.
func encodeJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(b, '\n'), nil
}

// writeFileAtomic stages the content in a temp file next to the target
// and renames it into place.
func writeFileAtomic(root, rel string, data []byte) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(full)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0644); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}
