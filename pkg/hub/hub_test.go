package hub

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvoindustrial/companydata/pkg/digest"
	"github.com/calvoindustrial/companydata/pkg/manifest"
)

const assetsJSON = `[
  {"asset_id": "A1", "name": "Compressor 5HP", "category": "compressor", "location": "BOD1", "unit": "un"},
  {"asset_id": "A2", "name": "Evaporator coil", "category": "coil", "location": "BOD2", "unit": "un"}
]`

const locationsJSON = `[
  {"location_id": "BOD1", "name": "Bodega principal", "warehouse": "Weston"}
]`

const rulesJSON = `{"cable_rules": {"min_awg": 14}, "breaker_rules": {"curve": "C"}}`

const inventoryWestonJSON = `{
  "meta": {"company": "Weston", "company_id": 1, "source": "postgres", "row_count": 2,
           "columns": ["Item", "Referencia"]},
  "rows": [
    {"Item": "1001", "Referencia": "REF-A", "Desc_item": "Cable #14", "Cant_existencia": 120},
    {"Item": "1002", "Referencia": "REF-B", "Desc_item": "Breaker 2P", "Cant_existencia": 4}
  ]
}`

const ordersWestonJSON = `{
  "meta": {"company": "Weston", "company_id": 1, "source": "postgres", "row_count": 1,
           "columns": ["OpNumero"]},
  "rows": [
    {"OpNumero": "OP-77", "Estado": "abierta", "OpReferencia1": "RACK-3"}
  ]
}`

// writePackage lays files on disk and builds a matching manifest.
func writePackage(t *testing.T, root string, files map[string]string) {
	t.Helper()
	m := &manifest.Manifest{
		PackageName:   "weston-company-data",
		SchemaVersion: manifest.SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
	}
	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(files[rel]), 0644))
		m.Files = append(m.Files, manifest.FileEntry{
			Path:   rel,
			SHA256: digest.Bytes([]byte(files[rel])),
			Kind:   manifest.KindForPath(rel),
		})
	}
	require.NoError(t, m.Write(root))
}

func fullPackage(t *testing.T) string {
	root := t.TempDir()
	writePackage(t, root, map[string]string{
		"master_data/assets.json":                 assetsJSON,
		"master_data/locations.json":              locationsJSON,
		"rules/materiales_rules.json":             rulesJSON,
		"snapshots/inventory_Weston.json":         inventoryWestonJSON,
		"snapshots/production_orders_Weston.json": ordersWestonJSON,
	})
	return root
}

func TestOpenAndGetters(t *testing.T) {
	h, err := Open(fullPackage(t), true)
	require.NoError(t, err)

	assets, err := h.Assets()
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "A1", assets[0].AssetID)
	assert.Equal(t, "Compressor 5HP", assets[0].Name)

	locations, err := h.Locations()
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "BOD1", locations[0].LocationID)

	rules, err := h.Rules()
	require.NoError(t, err)
	assert.Contains(t, rules, "cable_rules")
	assert.Contains(t, rules, "breaker_rules")

	inv, err := h.Inventory("Weston")
	require.NoError(t, err)
	require.Len(t, inv, 2)
	assert.Equal(t, "REF-A", inv[0].Referencia)
	assert.Equal(t, 120.0, inv[0].CantExistencia)

	orders, err := h.ProductionOrders("Weston")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "OP-77", orders[0].OpNumero)

	companies, err := h.Companies()
	require.NoError(t, err)
	assert.Equal(t, []string{"Weston"}, companies)
}

func TestGettersBeforeLoad(t *testing.T) {
	h := New(fullPackage(t))

	_, err := h.Assets()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = h.Inventory("Weston")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = h.Manifest()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestUnknownCompany(t *testing.T) {
	h, err := Open(fullPackage(t), true)
	require.NoError(t, err)

	_, err = h.Inventory("Nope")
	assert.ErrorIs(t, err, ErrUnknownCompany)
	_, err = h.ProductionOrders("Nope")
	assert.ErrorIs(t, err, ErrUnknownCompany)

	// Token matching is verbatim.
	_, err = h.Inventory("weston")
	assert.ErrorIs(t, err, ErrUnknownCompany)
}

func TestLoadGateOnTamper(t *testing.T) {
	root := fullPackage(t)
	target := filepath.Join(root, "master_data", "assets.json")
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	b[0] ^= 0x01
	require.NoError(t, os.WriteFile(target, b, 0644))

	h := New(root)
	err = h.Load(true)
	assert.ErrorIs(t, err, ErrIntegrity)

	// The hub stays not-loaded; no partial data leaks out.
	_, err = h.Assets()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoadGateOnMissingFile(t *testing.T) {
	root := fullPackage(t)
	require.NoError(t, os.Remove(
		filepath.Join(root, "snapshots", "inventory_Weston.json"),
	))

	_, err := Open(root, true)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestLoadWithoutVerifySkipsHashing(t *testing.T) {
	root := fullPackage(t)

	// Rewrite a file with semantically different content; without
	// verification the load must still succeed.
	target := filepath.Join(root, "master_data", "assets.json")
	require.NoError(t, os.WriteFile(target, []byte(`[]`), 0644))

	h, err := Open(root, false)
	require.NoError(t, err)
	assets, err := h.Assets()
	require.NoError(t, err)
	assert.Len(t, assets, 0)
}

func TestLoadManifestUnavailable(t *testing.T) {
	_, err := Open(t.TempDir(), true)
	assert.ErrorIs(t, err, manifest.ErrUnavailable)
}

func TestEmptySnapshotFile(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, map[string]string{
		"snapshots/inventory_Weston.json": "",
	})

	h, err := Open(root, true)
	require.NoError(t, err)

	inv, err := h.Inventory("Weston")
	require.NoError(t, err)
	assert.NotNil(t, inv)
	assert.Len(t, inv, 0)
}

func TestBareArraySnapshot(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, map[string]string{
		"snapshots/inventory_Weston.json": `[{"Item": "1", "Referencia": "R"}]`,
	})

	h, err := Open(root, true)
	require.NoError(t, err)

	inv, err := h.Inventory("Weston")
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "R", inv[0].Referencia)
}

func TestMalformedSnapshotIsLoadError(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, map[string]string{
		"snapshots/inventory_Weston.json": `{"rows": "not an array"`,
	})

	_, err := Open(root, false)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownCompany)
}

func TestDuplicateCompanyTokens(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, map[string]string{
		"snapshots/inventory_Weston.json": `{"rows": []}`,
		"snapshots/inventory_WESTON.json": `{"rows": []}`,
	})

	_, err := Open(root, true)
	assert.ErrorIs(t, err, ErrDuplicateCompany)
}

func TestDuplicateAcrossSnapshotTypesAllowed(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, map[string]string{
		"snapshots/inventory_Weston.json":         `{"rows": []}`,
		"snapshots/production_orders_Weston.json": `{"rows": []}`,
	})

	_, err := Open(root, true)
	assert.NoError(t, err)
}

func TestFindAsset(t *testing.T) {
	h, err := Open(fullPackage(t), true)
	require.NoError(t, err)

	a, ok, err := h.FindAsset("A2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Evaporator coil", a.Name)

	_, ok, err = h.FindAsset("A99")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInventoryIndex(t *testing.T) {
	h, err := Open(fullPackage(t), true)
	require.NoError(t, err)

	idx, err := h.InventoryIndex("Weston")
	require.NoError(t, err)
	require.Len(t, idx, 2)
	assert.Equal(t, "1002", idx["REF-B"].Item)

	_, err = h.InventoryIndex("Nope")
	assert.ErrorIs(t, err, ErrUnknownCompany)
}

func TestExplicitCompanyFieldOverridesFilename(t *testing.T) {
	root := t.TempDir()
	rel := "snapshots/inventory_weston.json"
	content := `{"rows": []}`
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))

	m := &manifest.Manifest{
		PackageName:   "weston-company-data",
		SchemaVersion: manifest.SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		Files: []manifest.FileEntry{
			{
				Path:    rel,
				SHA256:  digest.Bytes([]byte(content)),
				Kind:    manifest.KindSnapshot,
				Company: "Weston",
			},
		},
	}
	require.NoError(t, m.Write(root))

	h, err := Open(root, true)
	require.NoError(t, err)

	_, err = h.Inventory("Weston")
	assert.NoError(t, err)
	_, err = h.Inventory("weston")
	assert.ErrorIs(t, err, ErrUnknownCompany)
}
