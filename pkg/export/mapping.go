package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calvoindustrial/companydata/pkg/records"
)

// columnIndex maps a normalized column name to the raw name the source
// reported. Sources disagree on exact spelling ("Desc corta item",
// "desc_corta_item", "Desc.corta.item"); normalization absorbs that.
type columnIndex map[string]string

func normalizeColumn(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

func newColumnIndex(cols []string) columnIndex {
	idx := make(columnIndex, len(cols))
	for _, c := range cols {
		idx[normalizeColumn(c)] = c
	}
	return idx
}

// pick resolves the first alias present in the result set, returning the
// raw column name to read rows with.
func (idx columnIndex) pick(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if raw, ok := idx[a]; ok {
			return raw, true
		}
	}
	return "", false
}

type columnSpec struct {
	canonical string
	aliases   []string
}

var inventorySpecs = []columnSpec{
	{"Item", []string{"item"}},
	{"Referencia", []string{"referencia", "ref", "codigo"}},
	{"Desc_corta_item", []string{"desc_corta_item", "desc_corta"}},
	{"Desc_item", []string{"desc_item", "descripcion", "descripcion_item"}},
	{"Unidad_inventario", []string{"unidad_inventario", "unidad_inv"}},
	{"Unidad_orden", []string{"unidad_orden", "unidad_ord"}},
	{"Tipo_inv_serv", []string{"tipo_inv_serv", "tipo_inv", "tipo_servicio"}},
	{"Cant_existencia", []string{"cant_existencia", "existencia"}},
	{"Cant_requerida", []string{"cant_requerida", "requerida"}},
	{"Cant_OC_OP", []string{"cant_oc_op", "cant_oc", "cant_op"}},
	{"Fecha_creacion", []string{"fecha_creacion", "fecha"}},
	{"Estado", []string{"estado"}},
	{"Notas", []string{"notas", "nota"}},
}

var orderSpecs = []columnSpec{
	{"OpNumero", []string{"opnumero", "op_numero", "opnum", "op"}},
	{"FechaDocto", []string{"fechadocto", "fecha_docto", "fechadoc", "fecha"}},
	{"Estado", []string{"estado", "status"}},
	{"OpReferencia1", []string{"opreferencia1", "referencia1", "ref1"}},
	{"OpReferencia2", []string{"opreferencia2", "referencia2", "ref2"}},
	{"Notas", []string{"notas", "nota", "observaciones", "obs"}},
	{"CategoriasElectricas", []string{"categoriaselectricas", "categorias_electricas", "categorias"}},
}

// resolveColumns maps canonical column names to raw ones. With required
// set, every spec must resolve or the whole export aborts before any
// write happens.
func resolveColumns(
	specs []columnSpec,
	cols []string,
	required bool,
) (map[string]string, error) {
	idx := newColumnIndex(cols)
	resolved := make(map[string]string, len(specs))
	var missing []string
	for _, spec := range specs {
		raw, ok := idx.pick(spec.aliases...)
		if !ok {
			missing = append(missing, spec.canonical)
			continue
		}
		resolved[spec.canonical] = raw
	}
	if required && len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns %v", missing)
	}
	return resolved, nil
}

func mapInventory(rs *ResultSet) ([]records.InventoryRow, error) {
	cols, err := resolveColumns(inventorySpecs, rs.Columns, true)
	if err != nil {
		return nil, err
	}
	rows := make([]records.InventoryRow, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		rows = append(rows, records.InventoryRow{
			Item:             asString(r[cols["Item"]]),
			Referencia:       strings.TrimSpace(asString(r[cols["Referencia"]])),
			DescCortaItem:    asString(r[cols["Desc_corta_item"]]),
			DescItem:         asString(r[cols["Desc_item"]]),
			UnidadInventario: strings.TrimSpace(asString(r[cols["Unidad_inventario"]])),
			UnidadOrden:      strings.TrimSpace(asString(r[cols["Unidad_orden"]])),
			TipoInvServ:      strings.TrimSpace(asString(r[cols["Tipo_inv_serv"]])),
			CantExistencia:   asFloat(r[cols["Cant_existencia"]]),
			CantRequerida:    asFloat(r[cols["Cant_requerida"]]),
			CantOCOP:         asFloat(r[cols["Cant_OC_OP"]]),
			FechaCreacion:    asString(r[cols["Fecha_creacion"]]),
			Estado:           strings.TrimSpace(asString(r[cols["Estado"]])),
			Notas:            asString(r[cols["Notas"]]),
		})
	}
	return rows, nil
}

func mapOrders(rs *ResultSet) ([]records.ProductionOrder, error) {
	// Order sources vary more than inventory; absent columns map to
	// empty fields instead of aborting.
	cols, err := resolveColumns(orderSpecs, rs.Columns, false)
	if err != nil {
		return nil, err
	}
	get := func(r Row, canonical string) string {
		raw, ok := cols[canonical]
		if !ok {
			return ""
		}
		return strings.TrimSpace(asString(r[raw]))
	}
	rows := make([]records.ProductionOrder, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		rows = append(rows, records.ProductionOrder{
			OpNumero:             get(r, "OpNumero"),
			FechaDocto:           get(r, "FechaDocto"),
			Estado:               get(r, "Estado"),
			OpReferencia1:        get(r, "OpReferencia1"),
			OpReferencia2:        get(r, "OpReferencia2"),
			Notas:                get(r, "Notas"),
			CategoriasElectricas: get(r, "CategoriasElectricas"),
		})
	}
	return rows, nil
}

func mapAssets(rs *ResultSet) []records.Asset {
	idx := newColumnIndex(rs.Columns)
	col := func(aliases ...string) string {
		raw, _ := idx.pick(aliases...)
		return raw
	}
	id := col("asset_id", "id")
	name := col("name", "nombre")
	category := col("category", "categoria")
	location := col("location", "ubicacion")
	unit := col("unit", "unidad")

	out := make([]records.Asset, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		out = append(out, records.Asset{
			AssetID:  strings.TrimSpace(asString(r[id])),
			Name:     strings.TrimSpace(asString(r[name])),
			Category: strings.TrimSpace(asString(r[category])),
			Location: strings.TrimSpace(asString(r[location])),
			Unit:     strings.TrimSpace(asString(r[unit])),
		})
	}
	return out
}

func mapLocations(rs *ResultSet) []records.Location {
	idx := newColumnIndex(rs.Columns)
	col := func(aliases ...string) string {
		raw, _ := idx.pick(aliases...)
		return raw
	}
	id := col("location_id", "id")
	name := col("name", "nombre")
	warehouse := col("warehouse", "bodega")

	out := make([]records.Location, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		out = append(out, records.Location{
			LocationID: strings.TrimSpace(asString(r[id])),
			Name:       strings.TrimSpace(asString(r[name])),
			Warehouse:  strings.TrimSpace(asString(r[warehouse])),
		})
	}
	return out
}

// asString renders a source value in the one form that survives repeated
// exports unchanged: floats in shortest form, timestamps in UTC RFC3339.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case int:
		return float64(t)
	case []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}
