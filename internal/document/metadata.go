package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Source holds the provenance of one filing document.
type Source struct {
	Ticker          string `json:"ticker"`
	FilingType      string `json:"filing_type"`
	AccessionNumber string `json:"accession_number"`
	Filename        string `json:"filename"`
}

// Apply copies the source provenance onto chunk metadata, leaving the
// chunk's positional fields untouched.
func (s Source) Apply(m *Metadata) {
	m.Ticker = s.Ticker
	m.FilingType = s.FilingType
	m.AccessionNumber = s.AccessionNumber
	m.Filename = s.Filename
}

// ExtractSource derives provenance from a document's location descriptor,
// a 4-level hierarchy: ticker / filing-type / accession / filename.
//
// Paths with fewer levels degrade gracefully: missing fields default to the
// Unknown sentinel instead of failing, so downstream filtering stays
// well-defined.
func ExtractSource(p string) Source {
	parts := splitPath(p)

	src := Source{
		Ticker:          Unknown,
		FilingType:      Unknown,
		AccessionNumber: Unknown,
		Filename:        Unknown,
	}

	n := len(parts)
	if n >= 1 {
		src.Filename = parts[n-1]
	}
	if n >= 2 {
		src.AccessionNumber = parts[n-2]
	}
	if n >= 3 {
		src.FilingType = parts[n-3]
	}
	if n >= 4 {
		src.Ticker = parts[n-4]
	}
	return src
}

func splitPath(p string) []string {
	cleaned := path.Clean(filepath.ToSlash(p))
	var parts []string
	for _, part := range strings.Split(cleaned, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

// Manifest maps corpus-relative document paths to explicit provenance,
// decoupling metadata correctness from directory layout conventions.
type Manifest map[string]Source

// LoadManifest reads a JSON manifest file. A missing file is not an error
// and yields an empty manifest; path-derived metadata is used instead.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Resolve returns the provenance for a corpus-relative document path,
// preferring a manifest entry over positional path parsing.
func (m Manifest) Resolve(relPath string) Source {
	if src, ok := m[filepath.ToSlash(relPath)]; ok {
		if src.Filename == "" {
			src.Filename = path.Base(filepath.ToSlash(relPath))
		}
		return src
	}
	return ExtractSource(relPath)
}
