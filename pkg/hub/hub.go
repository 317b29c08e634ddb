// Package hub loads a verified company data package into memory and
// exposes typed getters over it. A Hub is an owned value: construct one
// per package root and hand it to whatever consumes it.
package hub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/calvoindustrial/companydata/pkg/manifest"
	"github.com/calvoindustrial/companydata/pkg/records"
	"github.com/calvoindustrial/companydata/pkg/verify"
)

var (
	// ErrIntegrity marks a package whose files fail hash verification.
	ErrIntegrity = errors.New("package integrity violation")

	// ErrNotLoaded marks a getter call before a successful Load.
	ErrNotLoaded = errors.New("package not loaded")

	// ErrUnknownCompany marks a company token with no snapshot file.
	ErrUnknownCompany = errors.New("unknown company")

	// ErrDuplicateCompany marks two snapshot files whose company tokens
	// collide (case variants included). The package is misconfigured;
	// Load rejects it rather than picking a winner.
	ErrDuplicateCompany = errors.New("duplicate company token")
)

const (
	assetsPath    = "master_data/assets.json"
	locationsPath = "master_data/locations.json"
	rulesPath     = "rules/materiales_rules.json"
)

type Hub struct {
	root   string
	loaded bool

	man       *manifest.Manifest
	assets    []records.Asset
	locations []records.Location
	rules     map[string]json.RawMessage
	inventory map[string][]records.InventoryRow
	orders    map[string][]records.ProductionOrder
}

// New binds a Hub to a package root. No I/O happens until Load.
func New(root string) *Hub {
	return &Hub{root: root}
}

// Open is the consumer facade: construct and load in one call.
func Open(root string, verifyHashes bool) (*Hub, error) {
	h := New(root)
	if err := h.Load(verifyHashes); err != nil {
		return nil, err
	}
	return h, nil
}

// Load reads the manifest, optionally verifies every declared digest, and
// parses the package contents into memory. With verifyHashes set, any bad
// or missing file aborts with ErrIntegrity before anything is exposed.
// After a failed Load the Hub is not loaded; getters return ErrNotLoaded
// rather than stale or partial data.
func (h *Hub) Load(verifyHashes bool) error {
	h.loaded = false

	man, err := manifest.Load(h.root)
	if err != nil {
		return err
	}

	if verifyHashes {
		rep, err := verify.Verify(h.root, man)
		if err != nil {
			return fmt.Errorf("verify package: %w", err)
		}
		if !rep.Valid() {
			return fmt.Errorf(
				"%w: %d bad, %d missing (first: %s)",
				ErrIntegrity, rep.Bad, rep.Missing,
				firstProblem(rep),
			)
		}
	}

	var (
		assets    []records.Asset
		locations []records.Location
		rules     map[string]json.RawMessage
	)
	inventory := make(map[string][]records.InventoryRow)
	orders := make(map[string][]records.ProductionOrder)
	tokens := make(map[string]string)

	for _, e := range man.Files {
		full := filepath.Join(h.root, filepath.FromSlash(e.Path))
		switch {
		case e.Path == assetsPath:
			err = readJSONFile(full, &assets)
		case e.Path == locationsPath:
			err = readJSONFile(full, &locations)
		case e.Path == rulesPath:
			err = readJSONFile(full, &rules)
		case manifest.KindForPath(e.Path) == manifest.KindSnapshot:
			err = loadSnapshot(e, full, tokens, inventory, orders)
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.Path, err)
		}
	}

	h.man = man
	h.assets = assets
	h.locations = locations
	h.rules = rules
	h.inventory = inventory
	h.orders = orders
	h.loaded = true
	return nil
}

func loadSnapshot(
	e manifest.FileEntry,
	full string,
	tokens map[string]string,
	inventory map[string][]records.InventoryRow,
	orders map[string][]records.ProductionOrder,
) error {
	st, company, ok := manifest.CompanyToken(e)
	if !ok {
		// Declared but not a snapshot the loader reads; legal.
		return nil
	}

	key := st + ":" + strings.ToLower(company)
	if prev, dup := tokens[key]; dup {
		return fmt.Errorf(
			"%w: %s collides with %s", ErrDuplicateCompany, company, prev,
		)
	}
	tokens[key] = company

	switch st {
	case manifest.SnapshotInventory:
		rows, err := readInventoryRows(full)
		if err != nil {
			return err
		}
		inventory[company] = rows
	case manifest.SnapshotOrders:
		rows, err := readOrderRows(full)
		if err != nil {
			return err
		}
		orders[company] = rows
	}
	return nil
}

// Manifest returns the parsed manifest of the loaded package.
func (h *Hub) Manifest() (*manifest.Manifest, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	return h.man, nil
}

// Assets returns the master asset catalog.
func (h *Hub) Assets() ([]records.Asset, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	return h.assets, nil
}

// Locations returns the master location table.
func (h *Hub) Locations() ([]records.Location, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	return h.locations, nil
}

// Rules returns the raw material rules document keyed by rule name.
// Rule shapes are owned by the consuming pages, not by this package.
func (h *Hub) Rules() (map[string]json.RawMessage, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	return h.rules, nil
}

// Inventory returns the snapshot rows for one company. The token is
// matched verbatim against the loaded snapshot set; an unknown token is
// ErrUnknownCompany, distinct from any parse failure (those abort Load).
// A company whose snapshot file was empty yields an empty, non-nil slice.
func (h *Hub) Inventory(company string) ([]records.InventoryRow, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	rows, ok := h.inventory[company]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompany, company)
	}
	return rows, nil
}

// ProductionOrders returns the open production orders for one company.
func (h *Hub) ProductionOrders(company string) ([]records.ProductionOrder, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	rows, ok := h.orders[company]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompany, company)
	}
	return rows, nil
}

// Companies lists the company tokens with an inventory snapshot, sorted.
func (h *Hub) Companies() ([]string, error) {
	if !h.loaded {
		return nil, ErrNotLoaded
	}
	out := make([]string, 0, len(h.inventory))
	for c := range h.inventory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// FindAsset looks an asset up by its identifier.
func (h *Hub) FindAsset(assetID string) (records.Asset, bool, error) {
	if !h.loaded {
		return records.Asset{}, false, ErrNotLoaded
	}
	for _, a := range h.assets {
		if a.AssetID == assetID {
			return a, true, nil
		}
	}
	return records.Asset{}, false, nil
}

// InventoryIndex builds a Referencia -> row index for one company. Rows
// with an empty Referencia are skipped.
func (h *Hub) InventoryIndex(company string) (map[string]records.InventoryRow, error) {
	rows, err := h.Inventory(company)
	if err != nil {
		return nil, err
	}
	out := make(map[string]records.InventoryRow, len(rows))
	for _, row := range rows {
		ref := strings.TrimSpace(row.Referencia)
		if ref != "" {
			out[ref] = row
		}
	}
	return out, nil
}

func firstProblem(rep *verify.Report) string {
	for _, r := range rep.Results {
		if r.Status != verify.StatusOK {
			return string(r.Status) + " " + r.Entry.Path
		}
	}
	return "none"
}

func readJSONFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// readInventoryRows accepts both snapshot encodings: the {meta, rows}
// wrapper current exports emit, and a bare row array from older packages.
// An empty file is an empty snapshot, not an error.
func readInventoryRows(path string) ([]records.InventoryRow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []records.InventoryRow{}, nil
	}
	if b[0] == '[' {
		var rows []records.InventoryRow
		if err := json.Unmarshal(b, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var snap records.InventorySnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	if snap.Rows == nil {
		return []records.InventoryRow{}, nil
	}
	return snap.Rows, nil
}

func readOrderRows(path string) ([]records.ProductionOrder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []records.ProductionOrder{}, nil
	}
	if b[0] == '[' {
		var rows []records.ProductionOrder
		if err := json.Unmarshal(b, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var snap records.OrdersSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	if snap.Rows == nil {
		return []records.ProductionOrder{}, nil
	}
	return snap.Rows, nil
}
