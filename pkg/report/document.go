package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/complic/internal/assets"
	"github.com/fulmenhq/complic/pkg/compat"
	"github.com/xeipuuv/gojsonschema"
)

// ProblemKind classifies a Problem.
type ProblemKind string

const (
	KindCompatibility ProblemKind = "compatibility"
	KindUnknown       ProblemKind = "unknown"
	KindNotApproved   ProblemKind = "not_approved"
)

// Problem is one reason the project is not compliant.
type Problem struct {
	Kind         ProblemKind `json:"kind"`
	Subject      string      `json:"subject"`
	Message      string      `json:"message"`
	Licenses     []string    `json:"licenses,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
}

// Summary carries the evidence counts.
type Summary struct {
	Dependencies int    `json:"dependencies"`
	Licenses     int    `json:"licenses"`
	Approved     int    `json:"approved"`
	NotApproved  int    `json:"not_approved"`
	Unknown      int    `json:"unknown"`
	Problems     int    `json:"problems"`
	Evidence     string `json:"evidence"`
}

// Document is the rendered report artifact.
type Document struct {
	ID            string                   `json:"id,omitempty"`
	Project       string                   `json:"project,omitempty"`
	Date          time.Time                `json:"date"`
	Licenses      map[string]bool          `json:"licenses"`
	Dependencies  map[string][]string      `json:"dependencies"`
	Compatibility map[string]compat.Result `json:"compatibility"`
	Approval      map[string]bool          `json:"approval,omitempty"`
	Problems      []Problem                `json:"problems"`
	Summary       Summary                  `json:"summary"`
}

// ProblemCount is the number of problems driving the exit status.
func (d *Document) ProblemCount() int { return len(d.Problems) }

// WriteJSON writes the indented JSON form.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func reportSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(assets.ReportSchema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile report schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidationError lists schema violations of a report document.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "report does not match schema: " + strings.Join(e.Issues, "; ")
}

// Validate checks raw JSON against the embedded report schema.
func Validate(data []byte) error {
	sch, err := reportSchema()
	if err != nil {
		return err
	}
	result, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("report is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, e := range result.Errors() {
		verr.Issues = append(verr.Issues, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return verr
}

// Parse validates and decodes a report previously written with WriteJSON.
func Parse(data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &d, nil
}
