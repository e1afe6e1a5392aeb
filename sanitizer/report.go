package sanitizer

// Report is the ordered list of fixes applied to one script.
// A description is recorded once, however many occurrences it covered.
type Report struct {
	fixes []string
	seen  map[string]struct{}
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{seen: make(map[string]struct{})}
}

// Add records desc unless it is already present.
func (r *Report) Add(desc string) {
	if _, ok := r.seen[desc]; ok {
		return
	}
	r.seen[desc] = struct{}{}
	r.fixes = append(r.fixes, desc)
}

// Fixes returns the descriptions in application order.
func (r *Report) Fixes() []string {
	out := make([]string, len(r.fixes))
	copy(out, r.fixes)
	return out
}

// Len returns the number of recorded fixes.
func (r *Report) Len() int {
	return len(r.fixes)
}
