// Package patch parses the patch engine's list-patches output into a
// structured catalog and turns operator selections into the engine's
// patch-command argument list.
package patch

import "strings"

// Record is one entry in a patch catalog, as reported by the engine's
// listing command. Fields the listing did not declare stay nil/empty;
// a block that matches nothing still yields a Record.
type Record struct {
	// Index is the positional id the engine reported, nil when absent.
	Index *int
	// Name is the human-readable identifier, empty when absent.
	Name string
	// Description may span multiple lines in the listing.
	Description string
	// Enabled is the engine's declared default inclusion state.
	Enabled *bool
	// Packages lists declared compatible package ids in discovery order,
	// without duplicates. Empty means the patch is universal.
	Packages []string
	// CompatibleVersions maps each entry of Packages to its declared
	// version strings (possibly none).
	CompatibleVersions map[string][]string
	// Options holds the patch's configurable parameters in listing order.
	Options []Option
	// Universal is derived from Packages after parsing and is never set
	// independently.
	Universal bool
	// Raw is the trimmed source block the record was parsed from.
	Raw string
}

// Option describes one configurable parameter of a patch. Parsing the
// textual Default into a typed value is the engine's business, not ours.
type Option struct {
	Key            string
	Type           string
	Default        *string
	Required       *bool
	Title          string
	Description    string
	PossibleValues []string
}

// HasIndex reports whether the record carries a positional id.
func (r *Record) HasIndex() bool { return r.Index != nil }

// SupportsPackage reports whether pkg appears in the record's compatible
// package list. Comparison is case-insensitive.
func (r *Record) SupportsPackage(pkg string) bool {
	for _, p := range r.Packages {
		if strings.EqualFold(p, pkg) {
			return true
		}
	}
	return false
}

func (r *Record) addPackage(pkg string) {
	if pkg == "" {
		return
	}
	for _, p := range r.Packages {
		if p == pkg {
			return
		}
	}
	r.Packages = append(r.Packages, pkg)
	if r.CompatibleVersions == nil {
		r.CompatibleVersions = make(map[string][]string)
	}
	if _, ok := r.CompatibleVersions[pkg]; !ok {
		r.CompatibleVersions[pkg] = nil
	}
}
