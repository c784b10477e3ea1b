// Package search implements the client-side work feed filtering used by the
// Home, Search, and Favorites views. Filtering is pure and stable: it never
// re-sorts the fetched list.
package search

import (
	"sort"
	"strings"

	"tesebook/pkg/domain"
)

// Tab selects which single-select control the search view shows.
type Tab string

const (
	TabCourse      Tab = "course"
	TabInstitution Tab = "institution"
)

// FilterState is the ephemeral search state of one view.
// Course and Institution both apply whenever set, independent of the active
// tab; the tab only decides which selector is visible.
type FilterState struct {
	ActiveTab   Tab
	Query       string
	Course      string
	Institution string
}

// Filter returns the subsequence of works matching state, preserving the
// input's order. A work matches when every set constraint holds:
// exact course (case-insensitive), exact institution (case-insensitive),
// and the query as a case-insensitive substring of title, topic, course,
// or institution.
func Filter(works []domain.WorkRecord, state FilterState) []domain.WorkRecord {
	query := strings.ToLower(strings.TrimSpace(state.Query))
	res := make([]domain.WorkRecord, 0, len(works))
	for _, w := range works {
		if !matchExact(w.Course, state.Course) {
			continue
		}
		if !matchExact(w.Institution, state.Institution) {
			continue
		}
		if !matchQuery(w, query) {
			continue
		}
		res = append(res, w)
	}
	return res
}

func matchExact(value, selected string) bool {
	if selected == "" {
		return true
	}
	return strings.EqualFold(value, selected)
}

func matchQuery(w domain.WorkRecord, query string) bool {
	if query == "" {
		return true
	}
	for _, field := range []string{w.Title, w.Topic, w.Course, w.Institution} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// CourseOptions returns the distinct non-empty course values of the loaded
// works, case-sensitive, lexicographically sorted.
func CourseOptions(works []domain.WorkRecord) []string {
	return distinct(works, func(w domain.WorkRecord) string { return w.Course })
}

// InstitutionOptions returns the distinct non-empty institution values of
// the loaded works, case-sensitive, lexicographically sorted.
func InstitutionOptions(works []domain.WorkRecord) []string {
	return distinct(works, func(w domain.WorkRecord) string { return w.Institution })
}

func distinct(works []domain.WorkRecord, field func(domain.WorkRecord) string) []string {
	seen := make(map[string]struct{}, len(works))
	out := make([]string, 0, len(works))
	for _, w := range works {
		v := field(w)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
