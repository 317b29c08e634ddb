package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumn(t *testing.T) {
	assert.Equal(t, "desc_corta_item", normalizeColumn("Desc corta item"))
	assert.Equal(t, "cant_oc_op", normalizeColumn("Cant OC/OP"))
	assert.Equal(t, "fecha_creacion", normalizeColumn(" Fecha creacion "))
	assert.Equal(t, "descitem", normalizeColumn("Desc.Item"))
	assert.Equal(t, "a_b", normalizeColumn("a   b"))
}

func TestResolveColumnsAliases(t *testing.T) {
	cols := []string{"Item", "codigo", "descripcion"}
	resolved, err := resolveColumns(inventorySpecs[:4], cols, false)
	require.NoError(t, err)
	assert.Equal(t, "Item", resolved["Item"])
	assert.Equal(t, "codigo", resolved["Referencia"])
	assert.Equal(t, "descripcion", resolved["Desc_item"])
}

func TestResolveColumnsMissingRequired(t *testing.T) {
	_, err := resolveColumns(inventorySpecs, []string{"Item"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Referencia")
}

func TestMapOrdersLenient(t *testing.T) {
	rows, err := mapOrders(&ResultSet{
		Columns: []string{"op_numero"},
		Rows:    []Row{{"op_numero": " OP-1 "}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "OP-1", rows[0].OpNumero)
	assert.Empty(t, rows[0].Estado)
}

func TestAsString(t *testing.T) {
	assert.Equal(t, "", asString(nil))
	assert.Equal(t, "x", asString("x"))
	assert.Equal(t, "x", asString([]byte("x")))
	assert.Equal(t, "1.5", asString(1.5))
	assert.Equal(t, "120", asString(120.0))
	assert.Equal(t, "7", asString(int64(7)))
	assert.Equal(t, "true", asString(true))
	assert.Equal(t,
		"2025-06-01T12:00:00Z",
		asString(time.Date(2025, 6, 1, 14, 0, 0, 0, time.FixedZone("", 2*3600))),
	)
}

func TestAsFloat(t *testing.T) {
	assert.Equal(t, 1.5, asFloat(1.5))
	assert.Equal(t, 7.0, asFloat(int64(7)))
	assert.Equal(t, 3.25, asFloat(" 3.25 "))
	assert.Equal(t, 2.0, asFloat([]byte("2")))
	assert.Equal(t, 0.0, asFloat(nil))
	assert.Equal(t, 0.0, asFloat("not a number"))
}
