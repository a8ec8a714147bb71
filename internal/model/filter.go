package model

import (
	"fmt"
	"strings"
	"time"
)

// Filter selects which cached tasks a view shows.
type Filter int

const (
	// FilterAll shows active tasks: not completed, not deleted.
	FilterAll Filter = iota
	// FilterCompleted shows completed tasks that are not deleted.
	FilterCompleted
	// FilterToday shows every task created on the current day, whatever its state.
	FilterToday
)

// Filters lists the modes in display order.
var Filters = []Filter{FilterAll, FilterToday, FilterCompleted}

func (f Filter) String() string {
	switch f {
	case FilterCompleted:
		return "completed"
	case FilterToday:
		return "today"
	default:
		return "all"
	}
}

// Title is the heading shown above a filtered view.
func (f Filter) Title() string {
	switch f {
	case FilterCompleted:
		return "Completed Tasks"
	case FilterToday:
		return "My Day"
	default:
		return "Active Tasks"
	}
}

// ParseFilter maps a user supplied name to a Filter. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "active":
		return FilterAll, nil
	case "completed", "done":
		return FilterCompleted, nil
	case "today", "my-day":
		return FilterToday, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q (want all, today or completed)", s)
}

// Match reports whether t belongs to the view at instant now.
// "today" compares calendar days in now's location.
func (f Filter) Match(t Task, now time.Time) bool {
	switch f {
	case FilterCompleted:
		return t.Completed && !t.IsDeleted
	case FilterToday:
		if t.CreatedAt == nil {
			return false
		}
		return sameDay(t.CreatedAt.In(now.Location()), now)
	default:
		return !t.Completed && !t.IsDeleted
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
