// internal/workflow/sort.go
package workflow

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type SortMode string

const (
	SortDefault SortMode = "default"
	SortDate    SortMode = "date"
	SortName    SortMode = "name"
)

func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case SortDefault, SortDate, SortName:
		return SortMode(s), nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// Next cycles default -> date -> name -> default.
func (m SortMode) Next() SortMode {
	switch m {
	case SortDefault:
		return SortDate
	case SortDate:
		return SortName
	default:
		return SortDefault
	}
}

// SortApplications returns a sorted copy; the input is not modified.
// Both keyed modes are stable.
func SortApplications(apps []Application, mode SortMode) []Application {
	out := make([]Application, len(apps))
	copy(out, apps)

	switch mode {
	case SortDate:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ApplicationDate.After(out[j].ApplicationDate)
		})
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return sortName(out[i]) < sortName(out[j])
		})
	}
	return out
}

func sortName(app Application) string {
	return strings.ToLower(DisplayName(app))
}

// SortState holds the sort mode of each column, keyed by column title.
type SortState struct {
	mu    sync.Mutex
	modes map[string]SortMode
}

func NewSortState() *SortState {
	return &SortState{modes: make(map[string]SortMode)}
}

func (s *SortState) Mode(column string) SortMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode, ok := s.modes[column]; ok {
		return mode
	}
	return SortDefault
}

// Toggle advances the column to its next mode and returns it.
func (s *SortState) Toggle(column string) SortMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.modes[column]
	if !ok {
		current = SortDefault
	}
	next := current.Next()
	s.modes[column] = next
	return next
}

func (s *SortState) Set(column string, mode SortMode) {
	s.mu.Lock()
	s.modes[column] = mode
	s.mu.Unlock()
}

type ColumnGroup struct {
	Title        string        `json:"title"`
	SortMode     SortMode      `json:"sort_mode"`
	Applications []Application `json:"applications"`
}

// GroupByColumn buckets applications into the fixed columns, keeping input
// order inside a bucket before sorting by the column's mode. The Unmapped
// group is appended only when it has members.
func GroupByColumn(apps []Application, state *SortState) []ColumnGroup {
	if state == nil {
		state = NewSortState()
	}

	buckets := make(map[string][]Application, len(statusColumns)+1)
	for _, app := range apps {
		title := ColumnFor(string(app.Status))
		buckets[title] = append(buckets[title], app)
	}

	titles := make([]string, 0, len(statusColumns)+1)
	for _, col := range statusColumns {
		titles = append(titles, col.Title)
	}
	if len(buckets[ColumnUnmapped]) > 0 {
		titles = append(titles, ColumnUnmapped)
	}

	groups := make([]ColumnGroup, 0, len(titles))
	for _, title := range titles {
		mode := state.Mode(title)
		groups = append(groups, ColumnGroup{
			Title:        title,
			SortMode:     mode,
			Applications: SortApplications(buckets[title], mode),
		})
	}
	return groups
}
