package app

import (
	"fmt"

	"tesebook/pkg/domain"
	"tesebook/pkg/search"
)

// SearchWorks filters the published feed by free-text query and exact
// course/institution selections, keeping the newest-first order.
func (a *App) SearchWorks(query, course, institution string) ([]domain.WorkRecord, error) {
	works, err := a.store.ListWorks()
	if err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	return search.Filter(works, search.FilterState{
		Query:       query,
		Course:      course,
		Institution: institution,
	}), nil
}

// FilterOptions lists the selectable course and institution values derived
// from the published works.
type FilterOptions struct {
	Courses      []string `json:"courses"`
	Institutions []string `json:"institutions"`
}

// WorkFilterOptions derives the distinct filter options from the feed.
func (a *App) WorkFilterOptions() (FilterOptions, error) {
	works, err := a.store.ListWorks()
	if err != nil {
		return FilterOptions{}, fmt.Errorf("list works: %w", err)
	}
	return FilterOptions{
		Courses:      search.CourseOptions(works),
		Institutions: search.InstitutionOptions(works),
	}, nil
}
