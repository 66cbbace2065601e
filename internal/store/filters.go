package store

// filters.go builds parameterized WHERE clauses for the applications
// table. Filters compose with AND; the free-text search is a single OR
// group over name, dairy_no, and contact.

import (
	"fmt"
	"strings"

	"opencourt/internal/core"
)

// whereBuilder accumulates AND-ed conditions with positional args.
type whereBuilder struct {
	conditions []string
	args       []interface{}
	argIndex   int
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{argIndex: 1}
}

// add appends one "column = $n" condition.
func (wb *whereBuilder) add(column string, value interface{}) {
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// addSearch appends a case-insensitive substring match over the three
// searchable columns as one OR group.
func (wb *whereBuilder) addSearch(search string) {
	search = strings.TrimSpace(search)
	if search == "" {
		return
	}
	pattern := "%" + search + "%"
	wb.conditions = append(wb.conditions, fmt.Sprintf(
		"(name ILIKE $%d OR dairy_no ILIKE $%d OR contact ILIKE $%d)",
		wb.argIndex, wb.argIndex+1, wb.argIndex+2))
	wb.args = append(wb.args, pattern, pattern, pattern)
	wb.argIndex += 3
}

// build returns the WHERE clause (with leading " WHERE", or "" when no
// conditions were added) and its args.
func (wb *whereBuilder) build() (string, []interface{}) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// buildApplicationWhere translates a listing filter into SQL.
func buildApplicationWhere(f core.ApplicationFilter) (string, []interface{}) {
	wb := newWhereBuilder()
	if !f.Scope.All() {
		wb.add("police_station", f.Scope.PoliceStation)
	}
	if f.Status != "" {
		wb.add("status", string(f.Status))
	}
	if f.PoliceStation != "" {
		wb.add("police_station", f.PoliceStation)
	}
	if f.Category != "" {
		wb.add("category", f.Category)
	}
	wb.addSearch(f.Search)
	return wb.build()
}

// buildScopeWhere translates a bare visibility scope into SQL.
func buildScopeWhere(scope core.Scope) (string, []interface{}) {
	wb := newWhereBuilder()
	if !scope.All() {
		wb.add("police_station", scope.PoliceStation)
	}
	return wb.build()
}
