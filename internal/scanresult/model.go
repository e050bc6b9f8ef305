package scanresult

import "slices"

// Format records which engine output format produced a Result.
type Format string

const (
	FormatStructured Format = "structured"
	FormatLegacy     Format = "legacy"
)

// DuplicateGroup is an ordered list of paths sharing one content fingerprint.
// Order is the engine's and is never re-sorted.
type DuplicateGroup struct {
	Files []string `json:"files"`
	Hash  string   `json:"hash,omitempty"`
}

// Len returns the number of member paths.
func (g DuplicateGroup) Len() int {
	return len(g.Files)
}

// Clone returns a deep copy.
func (g DuplicateGroup) Clone() DuplicateGroup {
	return DuplicateGroup{Files: slices.Clone(g.Files), Hash: g.Hash}
}

// Counts are the engine-reported aggregates. They are only known for
// structured output.
type Counts struct {
	TotalFiles      int `json:"total_files"`
	TotalDuplicates int `json:"total_duplicates"`
}

// Result is the canonical scan outcome.
type Result struct {
	Groups []DuplicateGroup `json:"duplicate_groups"`
	// Counts is nil when the engine did not report aggregates.
	Counts *Counts `json:"counts,omitempty"`
	Format Format  `json:"format"`
}

// TotalDuplicates sums group sizes from the live group list.
func (r Result) TotalDuplicates() int {
	total := 0
	for _, g := range r.Groups {
		total += len(g.Files)
	}
	return total
}

// GroupCount returns the number of duplicate groups.
func (r Result) GroupCount() int {
	return len(r.Groups)
}

// TotalFiles returns the engine-reported file count and whether it is known.
func (r Result) TotalFiles() (int, bool) {
	if r.Counts == nil {
		return 0, false
	}
	return r.Counts.TotalFiles, true
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (r Result) Clone() Result {
	out := Result{Format: r.Format}
	if r.Groups != nil {
		out.Groups = make([]DuplicateGroup, len(r.Groups))
		for i, g := range r.Groups {
			out.Groups[i] = g.Clone()
		}
	}
	if r.Counts != nil {
		counts := *r.Counts
		out.Counts = &counts
	}
	return out
}
