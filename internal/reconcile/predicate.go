// Package reconcile re-derives published summary values from detail rows and
// compares them cell by cell.
package reconcile

import (
	"strings"
)

// Column roles shared by detail sheets.
const (
	RoleCaseType     = "case_type"
	RoleCompliant    = "compliant"
	RoleChangeReason = "change_reason"
	RolePlacement    = "placement"
	RoleExclusion    = "exclusion"
)

// CaseType is one of the fixed summary columns. Aliases are the lower-case
// spellings that identify it in detail rows.
type CaseType struct {
	Name    string
	Column  int
	Aliases []string
}

// Matches reports whether a detail row's case type value belongs to c.
func (c CaseType) Matches(value string) bool {
	v := strings.ToLower(value)
	for _, a := range c.Aliases {
		if v == a {
			return true
		}
	}
	return false
}

var (
	ChildInCare         = CaseType{Name: "child in care", Column: 1, Aliases: []string{"child in care"}}
	Adoption            = CaseType{Name: "adoption", Column: 2, Aliases: []string{"adoption"}}
	FormalCustomaryCare = CaseType{Name: "formal customary care", Column: 3, Aliases: []string{"fcc", "formal customary care"}}
	KinshipService      = CaseType{Name: "kinship service", Column: 4, Aliases: []string{"kinship service"}}
)

// CaseTypes returns the case types in summary column order (B..E).
func CaseTypes() []CaseType {
	return []CaseType{ChildInCare, Adoption, FormalCustomaryCare, KinshipService}
}

// Filter tests the value of one column role. Unless Exact is set, values are
// compared lower-cased and the literals must be given in lower case.
type Filter struct {
	Role     string
	Values   []string
	Exact    bool
	NonEmpty bool
}

// Equals matches a case-folded value.
func Equals(role, value string) Filter {
	return Filter{Role: role, Values: []string{value}}
}

// In matches any of the case-folded values.
func In(role string, values ...string) Filter {
	return Filter{Role: role, Values: values}
}

// ExactIn matches any of the values byte for byte.
func ExactIn(role string, values ...string) Filter {
	return Filter{Role: role, Values: values, Exact: true}
}

// NotEmpty matches any non-empty value.
func NotEmpty(role string) Filter {
	return Filter{Role: role, NonEmpty: true}
}

// Match applies the filter to a cell's text. An empty cell is "".
func (f Filter) Match(value string) bool {
	if f.NonEmpty {
		return value != ""
	}
	if !f.Exact {
		value = strings.ToLower(value)
	}
	for _, v := range f.Values {
		if value == v {
			return true
		}
	}
	return false
}

// Predicate is a named conjunction of filters.
type Predicate struct {
	Name    string
	Filters []Filter
}

// And returns a copy of p with extra filters appended.
func (p Predicate) And(name string, filters ...Filter) Predicate {
	all := make([]Filter, 0, len(p.Filters)+len(filters))
	all = append(all, p.Filters...)
	all = append(all, filters...)
	return Predicate{Name: name, Filters: all}
}

// Roles returns the column roles the predicate reads.
func (p Predicate) Roles() []string {
	roles := make([]string, 0, len(p.Filters))
	for _, f := range p.Filters {
		roles = append(roles, f.Role)
	}
	return roles
}
