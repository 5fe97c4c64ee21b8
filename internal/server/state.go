package server

import (
	"sync"

	"rbacview/internal/pages"
	"rbacview/internal/resource"
	"rbacview/internal/table"
)

// appState holds the table state of every page. Tables are created on first
// use and live as long as the server; they are not safe for concurrent use,
// so every access goes through with.
type appState struct {
	mu       sync.Mutex
	pageSize int
	tables   map[resource.Kind]*table.Table[pages.Record]
}

func newAppState(pageSize int) *appState {
	return &appState{
		pageSize: pageSize,
		tables:   map[resource.Kind]*table.Table[pages.Record]{},
	}
}

func (a *appState) with(p pages.Page, fn func(t *table.Table[pages.Record])) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.tables[p.Kind]
	if !ok {
		t = p.NewTable(table.WithPageSize(a.pageSize))
		a.tables[p.Kind] = t
	}
	fn(t)
}
