package table

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

type ViewMode string

const (
	TableView ViewMode = "table"
	GridView  ViewMode = "grid"

	DefaultPageSize = 10

	// NoResults is rendered in place of rows for an empty result.
	NoResults = "No results"
)

// Column describes how to read, sort and filter one column of T.
type Column[T any] struct {
	ID     string
	Header string
	Value  func(T) string
	// Compare orders two rows; when nil the Value strings are compared,
	// numerically if both parse as numbers.
	Compare    func(a, b T) int
	Sortable   bool
	Filterable bool
	// Hidden columns start invisible and can be toggled on.
	Hidden bool
}

type SortState struct {
	Column string `json:"id"`
	Desc   bool   `json:"desc"`
}

// State is the transient UI state of a table. It is reset by Reset and only
// persisted through SaveConfig.
type State struct {
	View          ViewMode
	Sorting       []SortState
	Filter        string
	ColumnFilters map[string]string
	PageIndex     int
	PageSize      int
	Selected      map[string]bool
	Visibility    map[string]bool
}

type Option func(*settings)

type settings struct {
	pageSize int
}

func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Table is a client-side sortable, filterable, paginated view over a slice of
// T. It is not safe for concurrent use.
type Table[T any] struct {
	id       string
	columns  []Column[T]
	rowID    func(T) string
	pageSize int
	state    State
}

func New[T any](id string, columns []Column[T], rowID func(T) string, opts ...Option) *Table[T] {
	s := settings{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&s)
	}
	t := &Table[T]{
		id:       id,
		columns:  columns,
		rowID:    rowID,
		pageSize: s.pageSize,
	}
	t.Reset()
	return t
}

func (t *Table[T]) ID() string { return t.id }

func (t *Table[T]) Columns() []Column[T] { return t.columns }

// State returns a copy of the current state.
func (t *Table[T]) State() State {
	s := t.state
	s.Sorting = append([]SortState(nil), t.state.Sorting...)
	s.ColumnFilters = copyMap(t.state.ColumnFilters)
	s.Selected = copyMap(t.state.Selected)
	s.Visibility = copyMap(t.state.Visibility)
	return s
}

func (t *Table[T]) Reset() {
	t.state = State{
		View:          TableView,
		PageSize:      t.pageSize,
		ColumnFilters: map[string]string{},
		Selected:      map[string]bool{},
		Visibility:    map[string]bool{},
	}
}

func (t *Table[T]) column(id string) (Column[T], bool) {
	for _, c := range t.columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column[T]{}, false
}

// ToggleSort cycles a column through ascending, descending and unsorted.
// Without multi the column replaces any other sorting.
func (t *Table[T]) ToggleSort(col string, multi bool) bool {
	c, ok := t.column(col)
	if !ok || !c.Sortable {
		return false
	}

	idx := -1
	for i, s := range t.state.Sorting {
		if s.Column == col {
			idx = i
			break
		}
	}

	switch {
	case idx < 0:
		next := SortState{Column: col}
		if multi {
			t.state.Sorting = append(t.state.Sorting, next)
		} else {
			t.state.Sorting = []SortState{next}
		}
	case !t.state.Sorting[idx].Desc:
		next := SortState{Column: col, Desc: true}
		if multi {
			t.state.Sorting[idx] = next
		} else {
			t.state.Sorting = []SortState{next}
		}
	default:
		t.state.Sorting = append(t.state.Sorting[:idx:idx], t.state.Sorting[idx+1:]...)
	}
	return true
}

// SortDirection returns "asc", "desc" or "".
func (t *Table[T]) SortDirection(col string) string {
	for _, s := range t.state.Sorting {
		if s.Column == col {
			if s.Desc {
				return "desc"
			}
			return "asc"
		}
	}
	return ""
}

func (t *Table[T]) SetFilter(q string) {
	t.state.Filter = q
	t.state.PageIndex = 0
}

func (t *Table[T]) SetColumnFilter(col, q string) {
	if q == "" {
		delete(t.state.ColumnFilters, col)
	} else {
		t.state.ColumnFilters[col] = q
	}
	t.state.PageIndex = 0
}

func (t *Table[T]) SetPage(i int) {
	if i < 0 {
		i = 0
	}
	t.state.PageIndex = i
}

// NextPage advances one page if items has rows beyond the current page.
func (t *Table[T]) NextPage(items []T) {
	v := t.Render(items, false)
	if v.CanNext {
		t.state.PageIndex = v.PageIndex + 1
	}
}

func (t *Table[T]) PrevPage(items []T) {
	v := t.Render(items, false)
	if v.CanPrev {
		t.state.PageIndex = v.PageIndex - 1
	}
}

func (t *Table[T]) SetPageSize(n int) {
	if n <= 0 {
		n = t.pageSize
	}
	t.state.PageSize = n
	t.state.PageIndex = 0
}

func (t *Table[T]) SetView(m ViewMode) {
	if m != GridView {
		m = TableView
	}
	t.state.View = m
}

func (t *Table[T]) ToggleView() {
	if t.state.View == GridView {
		t.state.View = TableView
	} else {
		t.state.View = GridView
	}
}

func (t *Table[T]) ToggleRow(id string) {
	if t.state.Selected[id] {
		delete(t.state.Selected, id)
	} else {
		t.state.Selected[id] = true
	}
}

// TogglePage selects every row of the current page, or clears them when they
// are all selected already.
func (t *Table[T]) TogglePage(items []T) {
	v := t.Render(items, false)
	if len(v.Rows) == 0 {
		return
	}
	for _, r := range v.Rows {
		if v.PageSelected {
			delete(t.state.Selected, r.ID)
		} else {
			t.state.Selected[r.ID] = true
		}
	}
}

func (t *Table[T]) ClearSelection() {
	t.state.Selected = map[string]bool{}
}

// SelectedItems returns the selected items in input order.
func (t *Table[T]) SelectedItems(items []T) []T {
	var out []T
	for _, it := range items {
		if t.state.Selected[t.rowID(it)] {
			out = append(out, it)
		}
	}
	return out
}

func (t *Table[T]) SetColumnVisible(col string, visible bool) {
	if _, ok := t.column(col); !ok {
		return
	}
	t.state.Visibility[col] = visible
}

// ColumnVisible reports whether col is currently shown.
func (t *Table[T]) ColumnVisible(col string) bool {
	c, ok := t.column(col)
	return ok && t.visible(c)
}

func (t *Table[T]) visible(c Column[T]) bool {
	if v, ok := t.state.Visibility[c.ID]; ok {
		return v
	}
	return !c.Hidden
}

// HeaderCell describes one visible column header.
type HeaderCell struct {
	ID       string
	Header   string
	Sortable bool
	Sort     string
}

type Row[T any] struct {
	ID       string
	Item     T
	Cells    []string
	Selected bool
}

// View is the rendered result of a table over some input.
type View[T any] struct {
	ID             string
	Mode           ViewMode
	Headers        []HeaderCell
	Rows           []Row[T]
	Total          int
	Filtered       int
	PageIndex      int
	PageCount      int
	PageSize       int
	CanPrev        bool
	CanNext        bool
	ShowPagination bool
	Loading        bool
	Empty          bool
	Selected       int
	PageSelected   bool
	Filter         string
	ColumnFilters  map[string]string
}

// Render computes the visible page. It depends only on items, the columns
// and the current state, and never reorders items.
func (t *Table[T]) Render(items []T, loading bool) View[T] {
	v := View[T]{
		ID:            t.id,
		Mode:          t.state.View,
		Total:         len(items),
		PageSize:      t.state.PageSize,
		Loading:       loading,
		Selected:      len(t.state.Selected),
		Filter:        t.state.Filter,
		ColumnFilters: copyMap(t.state.ColumnFilters),
	}
	if v.PageSize <= 0 {
		v.PageSize = t.pageSize
	}

	var visible []Column[T]
	for _, c := range t.columns {
		if !t.visible(c) {
			continue
		}
		visible = append(visible, c)
		v.Headers = append(v.Headers, HeaderCell{
			ID:       c.ID,
			Header:   c.Header,
			Sortable: c.Sortable,
			Sort:     t.SortDirection(c.ID),
		})
	}

	if loading {
		v.PageCount = 1
		return v
	}

	idx := t.filtered(items)
	t.sort(items, idx)

	v.Filtered = len(idx)
	v.PageCount = int(math.Ceil(float64(len(idx)) / float64(v.PageSize)))
	if v.PageCount < 1 {
		v.PageCount = 1
	}
	v.PageIndex = t.state.PageIndex
	if v.PageIndex >= v.PageCount {
		v.PageIndex = v.PageCount - 1
	}
	if v.PageIndex < 0 {
		v.PageIndex = 0
	}
	v.CanPrev = v.PageIndex > 0
	v.CanNext = v.PageIndex < v.PageCount-1
	v.ShowPagination = len(idx) > v.PageSize
	v.Empty = len(idx) == 0

	start := v.PageIndex * v.PageSize
	end := start + v.PageSize
	if end > len(idx) {
		end = len(idx)
	}

	v.PageSelected = end > start
	for _, i := range idx[start:end] {
		it := items[i]
		row := Row[T]{ID: t.rowID(it), Item: it, Cells: make([]string, len(visible))}
		for ci, c := range visible {
			row.Cells[ci] = value(c, it)
		}
		row.Selected = t.state.Selected[row.ID]
		if !row.Selected {
			v.PageSelected = false
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func (t *Table[T]) filtered(items []T) []int {
	global := strings.ToLower(strings.TrimSpace(t.state.Filter))
	out := make([]int, 0, len(items))
	for i, it := range items {
		if global != "" && !t.matchesGlobal(it, global) {
			continue
		}
		if !t.matchesColumns(it) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (t *Table[T]) matchesGlobal(it T, q string) bool {
	for _, c := range t.columns {
		if !c.Filterable {
			continue
		}
		if strings.Contains(strings.ToLower(value(c, it)), q) {
			return true
		}
	}
	return false
}

func (t *Table[T]) matchesColumns(it T) bool {
	for col, q := range t.state.ColumnFilters {
		c, ok := t.column(col)
		if !ok || !c.Filterable {
			continue
		}
		if !strings.Contains(strings.ToLower(value(c, it)), strings.ToLower(strings.TrimSpace(q))) {
			return false
		}
	}
	return true
}

func (t *Table[T]) sort(items []T, idx []int) {
	if len(t.state.Sorting) == 0 {
		return
	}
	type key struct {
		col  Column[T]
		desc bool
	}
	var keys []key
	for _, s := range t.state.Sorting {
		if c, ok := t.column(s.Column); ok && c.Sortable {
			keys = append(keys, key{col: c, desc: s.Desc})
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := items[idx[a]], items[idx[b]]
		for _, k := range keys {
			var r int
			if k.col.Compare != nil {
				r = k.col.Compare(ia, ib)
			} else {
				r = compareValues(value(k.col, ia), value(k.col, ib))
			}
			if r == 0 {
				continue
			}
			if k.desc {
				return r > 0
			}
			return r < 0
		}
		return false
	})
}

func value[T any](c Column[T], it T) string {
	if c.Value == nil {
		return ""
	}
	return c.Value(it)
}

func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	if r := strings.Compare(strings.ToLower(a), strings.ToLower(b)); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
