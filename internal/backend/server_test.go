package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authorizationv1 "k8s.io/api/authorization/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"rbacview/internal/cluster"
	"rbacview/internal/store"
)

const testToken = "secret"

type testBackend struct {
	srv *httptest.Server
	cs  *fake.Clientset
}

func newTestBackend(t *testing.T, objs ...runtime.Object) *testBackend {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "backend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cs := fake.NewSimpleClientset(objs...)
	mgr := cluster.NewStaticManager("fake", &cluster.Clients{Clientset: cs})
	srv := httptest.NewServer(New(mgr, testToken, st).Router())
	t.Cleanup(srv.Close)
	return &testBackend{srv: srv, cs: cs}
}

func (b *testBackend) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func items(t *testing.T, payload map[string]any) []map[string]any {
	t.Helper()
	raw, ok := payload["items"].([]any)
	require.True(t, ok, "payload has no items: %v", payload)
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		out = append(out, it.(map[string]any))
	}
	return out
}

func name(obj map[string]any) string {
	return obj["metadata"].(map[string]any)["name"].(string)
}

func testRole(ns, n string) *rbacv1.Role {
	return &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: n},
		Rules:      []rbacv1.PolicyRule{{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"get"}}},
	}
}

func TestAuthRequired(t *testing.T) {
	b := newTestBackend(t)

	resp, err := http.Get(b.srv.URL + "/api/roles?namespace=all")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(b.srv.URL + "/api/roles?namespace=all&token=" + testToken)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(b.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(b.srv.URL + "/metrics")
	require.NoError(t, err)
	metricsBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(metricsBody), "rbacview_backend_requests_total")
}

func TestRolesLifecycle(t *testing.T) {
	b := newTestBackend(t, testRole("default", "reader"), testRole("dev", "writer"))

	code, payload := b.do(t, http.MethodGet, "/api/roles?namespace=all", nil)
	require.Equal(t, http.StatusOK, code)
	list := items(t, payload)
	require.Len(t, list, 2)
	assert.Equal(t, "Role", list[0]["kind"])
	assert.Equal(t, "fake", payload["active"])

	code, payload = b.do(t, http.MethodGet, "/api/roles/details?roleName=reader&namespace=default", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reader", name(payload))
	assert.NotNil(t, payload["rules"])

	code, payload = b.do(t, http.MethodGet, "/api/roles/details?roleName=ghost&namespace=default", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, payload["error"], "not found")

	code, _ = b.do(t, http.MethodPost, "/api/roles?namespace=dev", testRole("", "auditor"))
	assert.Equal(t, http.StatusCreated, code)

	code, payload = b.do(t, http.MethodPost, "/api/roles?namespace=dev", testRole("", "auditor"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, payload["error"], "already exists")

	updated := testRole("dev", "auditor")
	updated.Rules[0].Verbs = []string{"get", "list"}
	code, payload = b.do(t, http.MethodPut, "/api/roles?namespace=dev&name=auditor", updated)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, payload["rules"].([]any)[0].(map[string]any)["verbs"], 2)

	code, _ = b.do(t, http.MethodPut, "/api/roles?namespace=dev&name=other", updated)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = b.do(t, http.MethodDelete, "/api/roles?namespace=dev&name=auditor", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = b.do(t, http.MethodDelete, "/api/roles?namespace=dev&name=auditor", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = b.do(t, http.MethodDelete, "/api/roles?name=auditor", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, payload = b.do(t, http.MethodGet, "/api/audit-logs", nil)
	require.Equal(t, http.StatusOK, code)
	entries := items(t, payload)
	require.Len(t, entries, 5)
	assert.Equal(t, "delete", entries[0]["action"])
	assert.Equal(t, OutcomeFailure, entries[0]["outcome"])
	assert.EqualValues(t, http.StatusNotFound, entries[0]["code"])
	assert.Equal(t, "create", entries[4]["action"])
	assert.Equal(t, OutcomeSuccess, entries[4]["outcome"])
	assert.Equal(t, "auditor", entries[4]["targetName"])
}

func TestCreateNamespacedDefaultsNamespace(t *testing.T) {
	b := newTestBackend(t)

	code, payload := b.do(t, http.MethodPost, "/api/serviceaccounts", map[string]any{
		"metadata": map[string]any{"name": "ci"},
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "default", payload["metadata"].(map[string]any)["namespace"])
	assert.Equal(t, "ServiceAccount", payload["kind"])

	code, _ = b.do(t, http.MethodPost, "/api/serviceaccounts", map[string]any{"metadata": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestClusterRoleBindingValidation(t *testing.T) {
	b := newTestBackend(t)

	code, _ := b.do(t, http.MethodPost, "/api/clusterrolebindings", map[string]any{
		"metadata": map[string]any{"name": "bad"},
		"roleRef":  map[string]any{"kind": "Role", "name": "reader"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = b.do(t, http.MethodPost, "/api/clusterrolebindings", map[string]any{
		"metadata": map[string]any{"name": "admins"},
		"roleRef":  map[string]any{"kind": "ClusterRole", "name": "cluster-admin"},
		"subjects": []any{map[string]any{"kind": "Group", "name": "ops"}},
	})
	require.Equal(t, http.StatusCreated, code)

	code, payload := b.do(t, http.MethodGet, "/api/clusterrolebindings/details?name=admins", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ClusterRoleBinding", payload["kind"])

	code, payload = b.do(t, http.MethodGet, "/api/groups", nil)
	require.Equal(t, http.StatusOK, code)
	groups := items(t, payload)
	require.Len(t, groups, 1)
	assert.Equal(t, "ops", name(groups[0]))
}

func TestAdminUsers(t *testing.T) {
	b := newTestBackend(t)

	code, payload := b.do(t, http.MethodPost, "/admin/users", map[string]any{
		"metadata": map[string]any{"name": "alice"},
		"spec":     map[string]any{"email": "alice@example.com"},
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "viewer", payload["spec"].(map[string]any)["role"])
	assert.NotEmpty(t, payload["metadata"].(map[string]any)["uid"])

	code, _ = b.do(t, http.MethodPost, "/admin/users", map[string]any{"metadata": map[string]any{"name": "alice"}})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = b.do(t, http.MethodPost, "/admin/users", map[string]any{
		"metadata": map[string]any{"name": "bob"},
		"spec":     map[string]any{"role": "root"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, payload = b.do(t, http.MethodPut, "/admin/users?name=alice", map[string]any{
		"spec": map[string]any{"role": "admin", "disabled": true},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin", payload["spec"].(map[string]any)["role"])

	code, payload = b.do(t, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, items(t, payload), 1)

	code, _ = b.do(t, http.MethodDelete, "/admin/users?name=alice", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = b.do(t, http.MethodDelete, "/admin/users?name=alice", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = b.do(t, http.MethodPut, "/admin/users?name=alice", map[string]any{"spec": map[string]any{}})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCanI(t *testing.T) {
	b := newTestBackend(t)
	b.cs.PrependReactor("create", "selfsubjectaccessreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, &authorizationv1.SelfSubjectAccessReview{
			Status: authorizationv1.SubjectAccessReviewStatus{Allowed: true, Reason: "bound"},
		}, nil
	})

	code, payload := b.do(t, http.MethodPost, "/api/auth/can-i", map[string]any{"verb": "list", "resource": "roles"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, payload["allowed"])
	assert.Equal(t, "bound", payload["reason"])

	code, _ = b.do(t, http.MethodPost, "/api/auth/can-i", map[string]any{"verb": "list"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestForbiddenIsMapped(t *testing.T) {
	b := newTestBackend(t)
	b.cs.PrependReactor("list", "namespaces", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrorsForbidden()
	})

	code, payload := b.do(t, http.MethodGet, "/api/namespaces", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, payload["error"], "forbidden")
}

func TestContexts(t *testing.T) {
	b := newTestBackend(t)

	code, payload := b.do(t, http.MethodGet, "/api/contexts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fake", payload["active"])

	code, _ = b.do(t, http.MethodPost, "/api/context/select", map[string]any{"name": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
}
