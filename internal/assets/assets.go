package assets

import (
	"embed"
	"io/fs"
)

//go:embed embedded
var embedded embed.FS

// Inventory is the bundled license inventory keyed by canonical name.
//
//go:embed embedded/inventory.json
var Inventory []byte

// ReportSchema is the JSON Schema (draft-07) for the report artifact.
//
//go:embed embedded/schemas/report-v1.json
var ReportSchema []byte

// RegistryEntriesSchema describes the JSON array served by a license registry.
//
//go:embed embedded/schemas/registry-entries-v1.json
var RegistryEntriesSchema []byte

// ConfigSchema validates config.yaml and .complic.yaml files.
//
//go:embed embedded/schemas/config-v1.json
var ConfigSchema []byte

// ReportTemplate is the default handlebars template for text reports.
//
//go:embed embedded/templates/report.txt.hbs
var ReportTemplate []byte

// FS returns the embedded asset tree rooted at "embedded".
func FS() fs.FS {
	if sub, err := fs.Sub(embedded, "embedded"); err == nil {
		return sub
	}
	return embedded
}

// GetEmbeddedAsset retrieves an embedded asset by its path relative to the asset root.
func GetEmbeddedAsset(path string) ([]byte, error) {
	return fs.ReadFile(FS(), path)
}
