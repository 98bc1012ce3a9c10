package reconcile

// RowSource gives the aggregator role-addressed access to detail rows.
// *sheet.Binding satisfies it.
type RowSource interface {
	Len() int
	Text(row int, role string) string
}

// Aggregate counts the rows of ct that satisfy every filter of p.
func Aggregate(rows RowSource, p Predicate, ct CaseType) float64 {
	n := 0
	for i := 0; i < rows.Len(); i++ {
		if !ct.Matches(rows.Text(i, RoleCaseType)) {
			continue
		}
		if matchAll(rows, i, p.Filters) {
			n++
		}
	}
	return float64(n)
}

// Matching counts the rows of any case type that satisfy every filter of p.
func Matching(rows RowSource, p Predicate) int {
	n := 0
	for i := 0; i < rows.Len(); i++ {
		if matchAll(rows, i, p.Filters) {
			n++
		}
	}
	return n
}

// Ratio is Aggregate(num) / Aggregate(den), or 0 when the denominator is 0.
func Ratio(rows RowSource, num, den Predicate, ct CaseType) float64 {
	d := Aggregate(rows, den, ct)
	if d == 0 {
		return 0
	}
	return Aggregate(rows, num, ct) / d
}

func matchAll(rows RowSource, i int, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(rows.Text(i, f.Role)) {
			return false
		}
	}
	return true
}

// Measure is the value a summary row publishes: a count, or a ratio of two
// counts.
type Measure struct {
	Count       Predicate
	Denominator *Predicate
}

// Count measures the number of rows satisfying p.
func Count(p Predicate) Measure {
	return Measure{Count: p}
}

// Rate measures num / den.
func Rate(num, den Predicate) Measure {
	return Measure{Count: num, Denominator: &den}
}

// IsRate reports whether the measure is a ratio.
func (m Measure) IsRate() bool { return m.Denominator != nil }

// Eval computes the measure for ct.
func (m Measure) Eval(rows RowSource, ct CaseType) float64 {
	if m.Denominator != nil {
		return Ratio(rows, m.Count, *m.Denominator, ct)
	}
	return Aggregate(rows, m.Count, ct)
}

// Roles returns every column role the measure reads, including the case type.
func (m Measure) Roles() []string {
	roles := []string{RoleCaseType}
	roles = append(roles, m.Count.Roles()...)
	if m.Denominator != nil {
		roles = append(roles, m.Denominator.Roles()...)
	}
	return dedupe(roles)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
