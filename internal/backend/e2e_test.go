package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"rbacview/internal/backend"
	"rbacview/internal/cluster"
	"rbacview/internal/notify"
	"rbacview/internal/resource"
	"rbacview/internal/restclient"
	"rbacview/internal/store"
)

func newFactory(t *testing.T) (*resource.Factory, *notify.Hub) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "backend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cs := fake.NewSimpleClientset(
		&rbacv1.Role{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "reader", UID: "r1"}},
		&rbacv1.Role{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "writer", UID: "r2"}},
		&rbacv1.Role{ObjectMeta: metav1.ObjectMeta{Namespace: "dev", Name: "deployer", UID: "r3"}},
	)
	mgr := cluster.NewStaticManager("fake", &cluster.Clients{Clientset: cs})
	srv := httptest.NewServer(backend.New(mgr, "tok", st).Router())
	t.Cleanup(srv.Close)

	hub := notify.NewHub(10)
	client := restclient.New(srv.URL, restclient.StaticToken("tok"))
	return resource.NewFactory(client, resource.NewCache(0), hub), hub
}

func TestHooksAgainstBackend(t *testing.T) {
	f, hub := newFactory(t)
	ctx := context.Background()
	roles, err := f.For(resource.Roles)
	require.NoError(t, err)

	items, err := roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Role", items[0].GetKind())

	obj, err := resource.ParseManifest([]byte(`
kind: Role
metadata:
  name: auditor
  namespace: dev
rules:
- apiGroups: [""]
  resources: ["events"]
  verbs: ["list"]
`))
	require.NoError(t, err)
	require.NoError(t, roles.Create(ctx, obj))

	items, err = roles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 4)

	err = roles.Create(ctx, obj)
	require.Error(t, err)
	assert.True(t, restclient.IsStatus(err, http.StatusConflict))

	err = roles.Delete(ctx,
		resource.Target{Namespace: "default", Name: "reader"},
		resource.Target{Namespace: "default", Name: "ghost"},
		resource.Target{Namespace: "dev", Name: "deployer"},
	)
	require.Error(t, err)
	assert.True(t, restclient.IsStatus(err, http.StatusNotFound))

	items, err = roles.List(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, it := range items {
		names = append(names, it.GetName())
	}
	assert.ElementsMatch(t, []string{"writer", "auditor"}, names)

	detail, err := roles.Get(ctx, resource.Target{Namespace: "dev", Name: "auditor"})
	require.NoError(t, err)
	assert.Equal(t, "auditor", detail.GetName())

	audit, err := f.For(resource.AuditLogs)
	require.NoError(t, err)
	entries, err := audit.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	recent := hub.Recent()
	require.NotEmpty(t, recent)
	assert.Equal(t, notify.Error, recent[len(recent)-1].Level)
}
