// Package records defines the typed row shapes stored in a company data
// package. Field order is load-bearing for the exporter: encoding/json
// emits struct fields in declaration order, which keeps repeated exports
// byte-identical.
package records

// Asset is one master catalog record (master_data/assets.json).
type Asset struct {
	AssetID  string `json:"asset_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Location string `json:"location"`
	Unit     string `json:"unit"`
}

// Location is one site record (master_data/locations.json).
type Location struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Warehouse  string `json:"warehouse"`
}

// InventoryRow mirrors the columns of the inventory source query. The JSON
// keys are the canonical column names the downstream pages expect.
type InventoryRow struct {
	Item             string  `json:"Item"`
	Referencia       string  `json:"Referencia"`
	DescCortaItem    string  `json:"Desc_corta_item"`
	DescItem         string  `json:"Desc_item"`
	UnidadInventario string  `json:"Unidad_inventario"`
	UnidadOrden      string  `json:"Unidad_orden"`
	TipoInvServ      string  `json:"Tipo_inv_serv"`
	CantExistencia   float64 `json:"Cant_existencia"`
	CantRequerida    float64 `json:"Cant_requerida"`
	CantOCOP         float64 `json:"Cant_OC_OP"`
	FechaCreacion    string  `json:"Fecha_creacion"`
	Estado           string  `json:"Estado"`
	Notas            string  `json:"Notas"`
}

// ProductionOrder is one open production order row.
type ProductionOrder struct {
	OpNumero             string `json:"OpNumero"`
	FechaDocto           string `json:"FechaDocto"`
	Estado               string `json:"Estado"`
	OpReferencia1        string `json:"OpReferencia1"`
	OpReferencia2        string `json:"OpReferencia2"`
	Notas                string `json:"Notas"`
	CategoriasElectricas string `json:"CategoriasElectricas"`
}

// SnapshotMeta describes the provenance of one snapshot file. It carries
// no wall-clock timestamp: the manifest's generated_at covers the whole
// package generation, and timestamp-free payloads keep repeated exports of
// unchanged data byte-identical.
type SnapshotMeta struct {
	Company   string   `json:"company"`
	CompanyID int      `json:"company_id"`
	Source    string   `json:"source"`
	RowCount  int      `json:"row_count"`
	Columns   []string `json:"columns"`
}

// InventorySnapshot is the on-disk form of snapshots/inventory_<C>.json.
type InventorySnapshot struct {
	Meta SnapshotMeta   `json:"meta"`
	Rows []InventoryRow `json:"rows"`
}

// OrdersSnapshot is the on-disk form of snapshots/production_orders_<C>.json.
type OrdersSnapshot struct {
	Meta SnapshotMeta      `json:"meta"`
	Rows []ProductionOrder `json:"rows"`
}

// InventoryColumns is the canonical column set, in file order. The
// exporter refuses to write a snapshot missing any of these.
var InventoryColumns = []string{
	"Item",
	"Referencia",
	"Desc_corta_item",
	"Desc_item",
	"Unidad_inventario",
	"Unidad_orden",
	"Tipo_inv_serv",
	"Cant_existencia",
	"Cant_requerida",
	"Cant_OC_OP",
	"Fecha_creacion",
	"Estado",
	"Notas",
}

// OrderColumns is the production order column set, in file order.
var OrderColumns = []string{
	"OpNumero",
	"FechaDocto",
	"Estado",
	"OpReferencia1",
	"OpReferencia2",
	"Notas",
	"CategoriasElectricas",
}
