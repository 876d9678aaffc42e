package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/complic/internal/assets"
	"github.com/xeipuuv/gojsonschema"
)

// Entry is one license record served by a registry endpoint.
// Entries without Regexp only contribute to approval lookups.
type Entry struct {
	Name     string `json:"name"`
	Regexp   string `json:"regexp,omitempty"`
	Approved *bool  `json:"approved,omitempty"`
	Status   string `json:"status,omitempty"`
}

var (
	entriesSchemaOnce sync.Once
	entriesSchema     *gojsonschema.Schema
	entriesSchemaErr  error
)

func compiledEntriesSchema() (*gojsonschema.Schema, error) {
	entriesSchemaOnce.Do(func() {
		entriesSchema, entriesSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(assets.RegistryEntriesSchema))
		if entriesSchemaErr != nil {
			entriesSchemaErr = fmt.Errorf("compile registry schema: %w", entriesSchemaErr)
		}
	})
	return entriesSchema, entriesSchemaErr
}

// DecodeEntries validates a raw registry response body and decodes it.
func DecodeEntries(data []byte) ([]Entry, error) {
	sch, err := compiledEntriesSchema()
	if err != nil {
		return nil, err
	}
	result, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("registry response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return nil, fmt.Errorf("registry response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode registry entries: %w", err)
	}
	return entries, nil
}
