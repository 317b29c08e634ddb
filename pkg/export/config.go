package export

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default query texts. The inventory query mirrors the fnInventario table
// function the ERP exposes; override any of these in the config file when
// the schema differs.
const (
	DefaultAssetsSQL = `SELECT asset_id, name, category, location, unit
FROM assets ORDER BY asset_id`

	DefaultLocationsSQL = `SELECT location_id, name, warehouse
FROM locations ORDER BY location_id`

	DefaultInventorySQL = `SELECT item, referencia, desc_corta_item, desc_item,
       unidad_inventario, unidad_orden, tipo_inv_serv,
       cant_existencia, cant_requerida, cant_oc_op,
       fecha_creacion, estado, notas
FROM fn_inventario(?) ORDER BY item`
)

// Config drives one export run: where the package lives, which companies
// get snapshots, and the query text per table.
type Config struct {
	PackageName string `yaml:"package_name"`
	Root        string `yaml:"root"`
	SourceName  string `yaml:"source_name"`

	// Companies maps each company token to its source-side company id,
	// passed as the parameter of the per-company queries.
	Companies map[string]int `yaml:"companies"`

	AssetsSQL    string `yaml:"assets_sql"`
	LocationsSQL string `yaml:"locations_sql"`
	InventorySQL string `yaml:"inventory_sql"`
	OrdersSQL    string `yaml:"orders_sql"`

	// Audit appends one JSON line per export run to
	// audit/export_log.jsonl. The log sits outside the manifest so
	// repeated exports of unchanged data stay byte-identical.
	Audit bool `yaml:"audit"`
}

func DefaultConfig() *Config {
	return &Config{
		PackageName: "weston-company-data",
		Root:        "company_data",
		SourceName:  "postgres",
		Companies: map[string]int{
			"Weston": 1,
			"WBR":    5,
			"TEKOAM": 6,
		},
		AssetsSQL:    DefaultAssetsSQL,
		LocationsSQL: DefaultLocationsSQL,
		InventorySQL: DefaultInventorySQL,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	// yaml merges into a non-nil map; a configured company list must
	// replace the default one, not extend it.
	cfg.Companies = nil

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Companies) == 0 {
		cfg.Companies = DefaultConfig().Companies
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if c.PackageName == "" {
		return fmt.Errorf("package_name is required")
	}
	if len(c.Companies) == 0 {
		return fmt.Errorf("at least one company is required")
	}
	if c.InventorySQL == "" {
		return fmt.Errorf("inventory_sql is required")
	}
	return nil
}
