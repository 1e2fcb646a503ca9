package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalogue is the sources.yaml file: which calendars to read, how to rank
// them and which extra type rules apply.
type Catalogue struct {
	Priority     []string     `yaml:"priority"`      // calendar ids, most trusted first
	GenericCodes []string     `yaml:"generic_codes"` // legacy catch-all type codes, e.g. KNJV
	TypeRules    []TypeRule   `yaml:"type_rules"`
	Sources      []SourceSpec `yaml:"sources"`
}

type SourceSpec struct {
	Name          string `yaml:"name"`
	CalendarID    string `yaml:"calendar_id"`
	Format        string `yaml:"format"` // json | html
	Path          string `yaml:"path"`
	TableSelector string `yaml:"table_selector"` // html only
	Enabled       *bool  `yaml:"enabled"`
}

func (s SourceSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// TypeRule is appended after the built-in rules for its calendar.
type TypeRule struct {
	Calendar string   `yaml:"calendar"`
	Code     string   `yaml:"code"`
	When     []string `yaml:"when"`  // substrings, case-insensitive
	Words    []string `yaml:"words"` // whole words
}

func LoadCatalogue(path string) (*Catalogue, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source catalogue: %w", err)
	}
	return ParseCatalogue(b)
}

func ParseCatalogue(b []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse source catalogue: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogue) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("source catalogue needs at least one source")
	}

	names := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("duplicate source name %q", name)
		}
		names[name] = struct{}{}
		if strings.TrimSpace(src.Path) == "" {
			return fmt.Errorf("source %q: path is required", name)
		}
		if strings.EqualFold(strings.TrimSpace(src.Format), "html") && strings.TrimSpace(src.CalendarID) == "" {
			return fmt.Errorf("source %q: calendar_id is required for html sources", name)
		}
	}

	for i, rule := range c.TypeRules {
		if strings.TrimSpace(rule.Calendar) == "" || strings.TrimSpace(rule.Code) == "" {
			return fmt.Errorf("type_rules[%d] needs calendar and code", i)
		}
		if len(rule.When) == 0 && len(rule.Words) == 0 {
			return fmt.Errorf("type_rules[%d] needs when or words", i)
		}
	}
	return nil
}
