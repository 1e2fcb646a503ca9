package exportschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/jachtproef/internal/record"
)

//go:embed calendar_export.schema.json
var calendarExportSchemaJSON string

// CalendarExport is one saved dump of a calendar feed.
type CalendarExport struct {
	PayloadVersion   string       `json:"payload_version"`
	SourceCalendarID string       `json:"source_calendar_id"`
	ScrapedAt        *string      `json:"scraped_at,omitempty"`
	Records          []record.Raw `json:"records"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateCalendarExport checks payload against the embedded schema and
// returns the export with every record's calendar id filled in.
func ValidateCalendarExport(payload json.RawMessage) (*CalendarExport, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var export CalendarExport
	if err := json.Unmarshal(normalized, &export); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&export); err != nil {
		return nil, err
	}

	for i := range export.Records {
		if strings.TrimSpace(export.Records[i].SourceCalendarID) == "" {
			export.Records[i].SourceCalendarID = export.SourceCalendarID
		}
	}

	return &export, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("calendar_export.schema.json", strings.NewReader(calendarExportSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("calendar_export.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(export *CalendarExport) error {
	if export == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(export.SourceCalendarID) == "" {
		return fmt.Errorf("source_calendar_id must not be empty")
	}
	if strings.TrimSpace(export.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if export.ScrapedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*export.ScrapedAt)); err != nil {
			return fmt.Errorf("scraped_at must be RFC3339: %w", err)
		}
	}

	return nil
}
