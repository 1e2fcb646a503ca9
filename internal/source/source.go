// Package source supplies raw calendar listings to the sync pipeline.
package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"horse.fit/jachtproef/internal/config"
	"horse.fit/jachtproef/internal/record"
	exportschema "horse.fit/jachtproef/schema"
)

const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// Source yields every listing of one calendar. A source either returns the
// complete calendar or an error; it never returns a partial list.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]record.Raw, error)
}

// FileSource reads a saved calendar export validated against the export
// schema.
type FileSource struct {
	name string
	path string
}

func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) Fetch(ctx context.Context) ([]record.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", s.path, err)
	}

	export, err := exportschema.ValidateCalendarExport(payload)
	if err != nil {
		return nil, fmt.Errorf("validate export %s: %w", s.path, err)
	}
	return export.Records, nil
}

// FromCatalogue builds the sources listed in the catalogue, in order.
func FromCatalogue(catalogue *config.Catalogue) ([]Source, error) {
	if catalogue == nil {
		return nil, fmt.Errorf("source catalogue is nil")
	}

	sources := make([]Source, 0, len(catalogue.Sources))
	for _, spec := range catalogue.Sources {
		if !spec.IsEnabled() {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(spec.Format)) {
		case FormatJSON, "":
			sources = append(sources, NewFileSource(spec.Name, spec.Path))
		case FormatHTML:
			sources = append(sources, NewHTMLSource(spec.Name, spec.CalendarID, spec.Path, spec.TableSelector))
		default:
			return nil, fmt.Errorf("source %q: unsupported format %q", spec.Name, spec.Format)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("source catalogue lists no enabled sources")
	}
	return sources, nil
}
