package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"horse.fit/jachtproef/internal/record"
	"horse.fit/jachtproef/internal/taxonomy"
	exportschema "horse.fit/jachtproef/schema"
)

type validateResult struct {
	Scanned   int
	Valid     int
	Invalid   int
	Records   int
	Malformed int
}

// runValidate checks saved calendar exports without touching the database.
// Positional arguments are files; --dir scans a directory instead.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dir := fs.String("dir", "testdata/exports", "Directory containing .json calendar exports")
	recursive := fs.Bool("recursive", true, "Recursively scan subdirectories")
	strict := fs.Bool("strict", false, "Fail when any record cannot be normalized")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	files := fs.Args()
	scanned := "files"
	if len(files) == 0 {
		var err error
		files, err = collectJSONFiles(strings.TrimSpace(*dir), *recursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
			return 1
		}
		scanned = strings.TrimSpace(*dir)
	}

	result := validateResult{}
	for _, path := range files {
		result.Scanned++
		if err := validateExportFile(path, &result); err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		result.Valid++
	}

	fmt.Printf(
		"validate scanned=%d valid=%d invalid=%d records=%d malformed=%d source=%s\n",
		result.Scanned,
		result.Valid,
		result.Invalid,
		result.Records,
		result.Malformed,
		scanned,
	)

	if result.Scanned == 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: no .json files found under %s\n", scanned)
		return 1
	}
	if result.Invalid > 0 {
		return 1
	}
	if *strict && result.Malformed > 0 {
		return 1
	}
	return 0
}

func validateExportFile(path string, result *validateResult) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("malformed JSON")
	}

	export, err := exportschema.ValidateCalendarExport(json.RawMessage(raw))
	if err != nil {
		return err
	}

	for i, rec := range export.Records {
		result.Records++
		if _, err := record.NormalizeWith(rec, taxonomy.Default); err != nil {
			result.Malformed++
			fmt.Fprintf(os.Stderr, "MALFORMED %s records[%d]: %v\n", path, i, err)
		}
	}
	return nil
}

func collectJSONFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", cleanRoot, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
				files = append(files, filepath.Join(cleanRoot, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
