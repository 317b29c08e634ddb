package manifest

import "strings"

// Snapshot types, used as filename prefixes under snapshots/.
const (
	SnapshotInventory = "inventory"
	SnapshotOrders    = "production_orders"
)

// SnapshotPath builds the package-relative path for one company snapshot,
// e.g. SnapshotPath(SnapshotInventory, "Weston") -> "snapshots/inventory_Weston.json".
func SnapshotPath(snapshotType, company string) string {
	return "snapshots/" + snapshotType + "_" + company + ".json"
}

// ParseSnapshotPath recovers the snapshot type and company token from a
// snapshot entry path. The filename-embedded token is legacy; entries
// written by this code also carry an explicit Company field, which takes
// precedence in CompanyToken.
func ParseSnapshotPath(rel string) (snapshotType, company string, ok bool) {
	name, found := strings.CutPrefix(rel, "snapshots/")
	if !found || strings.Contains(name, "/") {
		return "", "", false
	}
	name, found = strings.CutSuffix(name, ".json")
	if !found {
		return "", "", false
	}
	for _, st := range []string{SnapshotOrders, SnapshotInventory} {
		if c, found := strings.CutPrefix(name, st+"_"); found && c != "" {
			return st, c, true
		}
	}
	return "", "", false
}

// CompanyToken returns the company a snapshot entry belongs to: the
// explicit manifest field when present, otherwise the filename token.
func CompanyToken(e FileEntry) (snapshotType, company string, ok bool) {
	snapshotType, parsed, found := ParseSnapshotPath(e.Path)
	if !found {
		return "", "", false
	}
	if e.Company != "" {
		return snapshotType, e.Company, true
	}
	return snapshotType, parsed, true
}
