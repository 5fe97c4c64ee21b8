package table

import (
	"encoding/json"
	"fmt"
)

// ConfigStore persists saved table configs. store.Bucket implements it.
type ConfigStore interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
}

// Config is the persisted subset of State.
type Config struct {
	Sorting       []SortState       `json:"sorting,omitempty"`
	Filter        string            `json:"globalFilter,omitempty"`
	ColumnFilters map[string]string `json:"columnFilters,omitempty"`
	Visibility    map[string]bool   `json:"columnVisibility,omitempty"`
	PageSize      int               `json:"pageSize,omitempty"`
	View          ViewMode          `json:"view,omitempty"`
}

func (t *Table[T]) Config() Config {
	s := t.State()
	return Config{
		Sorting:       s.Sorting,
		Filter:        s.Filter,
		ColumnFilters: s.ColumnFilters,
		Visibility:    s.Visibility,
		PageSize:      s.PageSize,
		View:          s.View,
	}
}

// ApplyConfig replaces sorting, filters, visibility, page size and view with
// cfg. Selection is cleared and the first page shown.
func (t *Table[T]) ApplyConfig(cfg Config) {
	t.Reset()
	for _, s := range cfg.Sorting {
		if c, ok := t.column(s.Column); ok && c.Sortable {
			t.state.Sorting = append(t.state.Sorting, s)
		}
	}
	t.state.Filter = cfg.Filter
	for k, v := range cfg.ColumnFilters {
		if v != "" {
			t.state.ColumnFilters[k] = v
		}
	}
	for k, v := range cfg.Visibility {
		t.SetColumnVisible(k, v)
	}
	if cfg.PageSize > 0 {
		t.state.PageSize = cfg.PageSize
	}
	t.SetView(cfg.View)
}

func (t *Table[T]) SaveConfig(s ConfigStore) error {
	b, err := json.Marshal(t.Config())
	if err != nil {
		return fmt.Errorf("encode table config %s: %w", t.id, err)
	}
	return s.Save(t.id, b)
}

// LoadConfig restores a saved config. It reports false when none was saved.
func (t *Table[T]) LoadConfig(s ConfigStore) (bool, error) {
	b, ok, err := s.Load(t.id)
	if err != nil || !ok {
		return false, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return false, fmt.Errorf("decode table config %s: %w", t.id, err)
	}
	t.ApplyConfig(cfg)
	return true, nil
}
