package assets

// Registry lists embedded assets available at runtime.
// Update this when adding/removing curated assets.

type AssetInfo struct {
	Family  string // inventory, jsonschema, template
	Version string
	Path    string // path relative to the asset root
	Source  string // provenance
}

var Registry = []AssetInfo{
	{
		Family:  "inventory",
		Version: "1",
		Path:    "inventory.json",
		Source:  "https://github.com/spdx/license-list-data (names), curated patterns",
	},
	{
		Family:  "jsonschema",
		Version: "draft-07",
		Path:    "schemas/report-v1.json",
		Source:  "complic",
	},
	{
		Family:  "jsonschema",
		Version: "draft-07",
		Path:    "schemas/registry-entries-v1.json",
		Source:  "complic",
	},
	{
		Family:  "jsonschema",
		Version: "draft-07",
		Path:    "schemas/config-v1.json",
		Source:  "complic",
	},
	{
		Family:  "template",
		Version: "1",
		Path:    "templates/report.txt.hbs",
		Source:  "complic",
	},
}
