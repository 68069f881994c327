// Package catalog loads the vendor/solution spreadsheet and resolves
// free-text vendor and solution input against it.
package catalog

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/cloudmatch/backend/internal/domain"
)

// Catalog is the in-memory vendor/solution table. It is loaded once at
// startup and never mutated afterwards, so it is safe for concurrent reads.
type Catalog struct {
	entries []domain.CatalogEntry
	vendors []string            // canonical casing, sorted
	byKey   map[string][]string // lowercase vendor -> solutions in sheet order
	casing  map[string]string   // lowercase vendor -> canonical casing
}

// Load reads the catalog from an .xlsx or .csv file. A missing vendor or
// solution column is a configuration error and aborts startup.
func Load(path string) (*Catalog, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcel(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	cat, err := fromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	log.Printf("[CATALOG] Loaded %d entries with %d vendors from %s",
		len(cat.entries), len(cat.vendors), path)
	return cat, nil
}

// fromRows builds a Catalog from a header row plus data rows
func fromRows(rows [][]string) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	vendorCol, solutionCol := -1, -1
	for i, col := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "vendor":
			vendorCol = i
		case "solution_name", "solution":
			solutionCol = i
		}
	}
	if vendorCol < 0 || solutionCol < 0 {
		return nil, fmt.Errorf("catalog must have 'vendor' and 'solution_name' columns, got: %v", rows[0])
	}

	cat := &Catalog{
		byKey:  make(map[string][]string),
		casing: make(map[string]string),
	}

	for _, row := range rows[1:] {
		if vendorCol >= len(row) {
			continue
		}
		vendor := strings.TrimSpace(row[vendorCol])
		if vendor == "" {
			continue
		}
		solution := ""
		if solutionCol < len(row) {
			solution = strings.TrimSpace(row[solutionCol])
		}

		key := strings.ToLower(vendor)
		if _, seen := cat.casing[key]; !seen {
			cat.casing[key] = vendor
			cat.vendors = append(cat.vendors, vendor)
		}
		// Duplicate rows are allowed; downstream lookups dedupe as needed
		cat.entries = append(cat.entries, domain.CatalogEntry{Vendor: vendor, Solution: solution})
		cat.byKey[key] = append(cat.byKey[key], solution)
	}

	sort.Strings(cat.vendors)
	return cat, nil
}

// Vendors returns all vendor names in canonical casing, sorted
func (c *Catalog) Vendors() []string {
	out := make([]string, len(c.vendors))
	copy(out, c.vendors)
	return out
}

// SolutionsFor returns the solutions for a vendor in sheet order. The lookup
// is case-insensitive; ErrVendorNotFound is returned for unknown vendors.
func (c *Catalog) SolutionsFor(vendor string) ([]string, error) {
	solutions, ok := c.byKey[strings.ToLower(strings.TrimSpace(vendor))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrVendorNotFound, vendor)
	}
	out := make([]string, len(solutions))
	copy(out, solutions)
	return out, nil
}

// Entries returns all catalog rows
func (c *Catalog) Entries() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Has reports whether the vendor (and, when given, solution) appears in the
// catalog, case-insensitively
func (c *Catalog) Has(vendor, solution string) bool {
	solutions, ok := c.byKey[strings.ToLower(strings.TrimSpace(vendor))]
	if !ok {
		return false
	}
	if solution == "" {
		return true
	}
	want := strings.ToLower(strings.TrimSpace(solution))
	for _, s := range solutions {
		if strings.ToLower(s) == want {
			return true
		}
	}
	return false
}

// ResolveVendor maps free-text input to the closest catalog vendor.
// Exact (case-insensitive) matches score 100; otherwise the best fuzzy match
// at or above threshold wins. Below threshold the input is returned
// unchanged with a zero score.
func (c *Catalog) ResolveVendor(input string, threshold float64) (string, float64) {
	input = strings.TrimSpace(input)
	if input == "" || len(c.vendors) == 0 {
		return input, 0
	}

	if canonical, ok := c.casing[strings.ToLower(input)]; ok {
		return canonical, 100
	}

	best, bestScore := input, 0.0
	for _, vendor := range c.vendors {
		score := bestRatio(input, vendor)
		if score > bestScore {
			bestScore = score
			best = vendor
		}
	}
	if bestScore >= threshold {
		return best, bestScore
	}
	return input, 0
}

// ResolveSolution maps free-text input to the closest solution of the given
// vendor, with the same threshold semantics as ResolveVendor
func (c *Catalog) ResolveSolution(vendor, input string, threshold float64) (string, float64) {
	input = strings.TrimSpace(input)
	if input == "" {
		return input, 0
	}

	solutions, err := c.SolutionsFor(vendor)
	if err != nil {
		return input, 0
	}

	for _, s := range solutions {
		if strings.EqualFold(s, input) {
			return s, 100
		}
	}

	best, bestScore := input, 0.0
	for _, s := range solutions {
		if s == "" {
			continue
		}
		score := bestRatio(input, s)
		if score > bestScore {
			bestScore = score
			best = s
		}
	}
	if bestScore >= threshold {
		return best, bestScore
	}
	return input, 0
}

// bestRatio combines several fuzzy ratios and keeps the highest
func bestRatio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	best := fuzzy.Ratio(a, b)
	if s := fuzzy.PartialRatio(a, b); s > best {
		best = s
	}
	if s := fuzzy.TokenSortRatio(a, b); s > best {
		best = s
	}
	if s := fuzzy.TokenSetRatio(a, b); s > best {
		best = s
	}
	return float64(best)
}
