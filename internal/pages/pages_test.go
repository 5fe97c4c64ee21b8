package pages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/resource"
	"rbacview/internal/table"
)

func record(obj map[string]any) Record {
	return Record{Object: obj}
}

func cells(t *testing.T, p Page, items []Record) [][]string {
	t.Helper()
	v := p.NewTable().Render(items, false)
	out := make([][]string, 0, len(v.Rows))
	for _, r := range v.Rows {
		out = append(out, r.Cells)
	}
	return out
}

func TestEveryKindHasPage(t *testing.T) {
	all := All()
	require.Len(t, all, len(resource.Kinds()))
	for i, k := range resource.Kinds() {
		p, err := For(k)
		require.NoError(t, err)
		assert.Equal(t, k, p.Kind)
		assert.Equal(t, k, all[i].Kind)
		assert.NotEmpty(t, p.Columns, k)

		back, err := resource.ParseKind(p.Slug())
		require.NoError(t, err)
		assert.Equal(t, k, back, "slug %s", p.Slug())

		h, err := resource.NewFactory(nil, nil, nil).For(k)
		require.NoError(t, err)
		if p.Skeleton != "" {
			assert.True(t, h.CanCreate(), "%s has a skeleton but no create", k)
			obj, err := resource.ParseManifest([]byte(p.Skeleton))
			require.NoError(t, err, k)
			assert.NoError(t, resource.Conform(k, obj), k)
		}
	}

	_, err := For("Pods")
	assert.ErrorIs(t, err, resource.ErrUnknownKind)
}

func TestRoleBindingColumns(t *testing.T) {
	p, err := For(resource.RoleBindings)
	require.NoError(t, err)

	rows := cells(t, p, []Record{record(map[string]any{
		"metadata": map[string]any{"name": "devs", "namespace": "dev", "uid": "u1"},
		"roleRef":  map[string]any{"kind": "Role", "name": "editor"},
		"subjects": []any{
			map[string]any{"kind": "User", "name": "bob"},
			map[string]any{"kind": "ServiceAccount", "name": "ci", "namespace": "dev"},
		},
	})})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"devs", "dev", "Role/editor", "User:bob, ServiceAccount:dev/ci", "-"}, rows[0])
}

func TestAgeColumn(t *testing.T) {
	fixed := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	p, err := For(resource.Roles)
	require.NoError(t, err)
	older := record(map[string]any{"metadata": map[string]any{
		"name": "old", "namespace": "a", "creationTimestamp": fixed.Add(-72 * time.Hour).Format(time.RFC3339),
	}})
	newer := record(map[string]any{"metadata": map[string]any{
		"name": "new", "namespace": "a", "creationTimestamp": fixed.Add(-5 * time.Minute).Format(time.RFC3339),
	}})

	tbl := p.NewTable()
	require.True(t, tbl.ToggleSort("age", false))
	v := tbl.Render([]Record{newer, older}, false)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "new", v.Rows[0].Item.GetName())
	assert.Equal(t, "5m", v.Rows[0].Cells[3])
	assert.Equal(t, "3d", v.Rows[1].Cells[3])
}

func TestSubjectPageFilterByRole(t *testing.T) {
	p, err := For(resource.Users)
	require.NoError(t, err)
	items := []Record{
		record(map[string]any{
			"metadata": map[string]any{"name": "alice", "uid": "1"},
			"bindings": []any{map[string]any{"kind": "ClusterRoleBinding", "name": "admins", "roleRef": map[string]any{"kind": "ClusterRole", "name": "cluster-admin"}}},
		}),
		record(map[string]any{
			"metadata": map[string]any{"name": "bob", "uid": "2"},
			"bindings": []any{map[string]any{"kind": "RoleBinding", "name": "devs", "roleRef": map[string]any{"kind": "Role", "name": "editor"}}},
		}),
	}

	tbl := p.NewTable()
	tbl.SetFilter("CLUSTER-ADMIN")
	v := tbl.Render(items, false)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "alice", v.Rows[0].Item.GetName())
	assert.Equal(t, "1", v.Rows[0].Cells[1])
}

func TestNamespaceLabelsHidden(t *testing.T) {
	p, err := For(resource.Namespaces)
	require.NoError(t, err)
	ns := record(map[string]any{
		"metadata": map[string]any{"name": "team-a", "labels": map[string]any{"team": "a", "env": "prod"}},
		"status":   map[string]any{"phase": "Active"},
	})

	tbl := p.NewTable()
	v := tbl.Render([]Record{ns}, false)
	assert.Len(t, v.Headers, 3)

	tbl.SetColumnVisible("labels", true)
	v = tbl.Render([]Record{ns}, false)
	require.Len(t, v.Headers, 4)
	assert.Equal(t, "env=prod,team=a", v.Rows[0].Cells[2])
	assert.Equal(t, "Active", v.Rows[0].Cells[1])

	tbl.SetFilter("prod")
	assert.Equal(t, 1, tbl.Render([]Record{ns}, false).Filtered)
}

func TestAuditColumns(t *testing.T) {
	p, err := For(resource.AuditLogs)
	require.NoError(t, err)
	ts := metav1.NewTime(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	entry := record(map[string]any{
		"metadata":        map[string]any{"name": "e1", "uid": "e1", "creationTimestamp": ts.UTC().Format(time.RFC3339)},
		"action":          "delete",
		"resource":        "roles",
		"targetNamespace": "dev",
		"targetName":      "reader",
		"outcome":         "failure",
		"code":            float64(404),
	})

	rows := cells(t, p, []Record{entry})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"2026-03-01T09:30:00Z", "delete", "roles", "dev/reader", "failure", "404"}, rows[0])
}

func TestPageSizeOption(t *testing.T) {
	p, err := For(resource.ClusterRoles)
	require.NoError(t, err)
	items := make([]Record, 30)
	for i := range items {
		items[i] = record(map[string]any{"metadata": map[string]any{"name": string(rune('a' + i%26)), "uid": string(rune('A' + i))}})
	}
	v := p.NewTable(table.WithPageSize(25)).Render(items, false)
	assert.Len(t, v.Rows, 25)
	assert.Equal(t, 2, v.PageCount)
}
