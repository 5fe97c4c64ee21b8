package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"Roles":               Roles,
		"role":                Roles,
		"clusterrolebinding":  ClusterRoleBindings,
		"ClusterRoleBindings": ClusterRoleBindings,
		"sa":                  "",
		"serviceaccounts":     ServiceAccounts,
		"audit-logs":          AuditLogs,
		"admin_users":         AdminUsers,
		"users":               Users,
		"resources":           APIResources,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if want == "" {
			assert.ErrorIs(t, err, ErrUnknownKind, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestEveryKindHasBinding(t *testing.T) {
	for _, k := range Kinds() {
		b, ok := registry[k]
		require.True(t, ok, k)
		assert.NotNil(t, b.list, k)
		assert.NotEmpty(t, k.Singular(), k)
	}
}

func TestParseTarget(t *testing.T) {
	tg, err := ParseTarget("kube-system/reader")
	require.NoError(t, err)
	assert.Equal(t, Target{Namespace: "kube-system", Name: "reader"}, tg)

	tg, err = ParseTarget("admin")
	require.NoError(t, err)
	assert.Equal(t, Target{Name: "admin"}, tg)
	assert.Equal(t, "admin", tg.String())

	_, err = ParseTarget("a/b/c")
	assert.Error(t, err)
	_, err = ParseTarget("ns/")
	assert.Error(t, err)
}

func TestParseManifest(t *testing.T) {
	obj, err := ParseManifest([]byte(`
apiVersion: rbac.authorization.k8s.io/v1
kind: Role
metadata:
  name: pod-reader
  namespace: default
rules:
- apiGroups: [""]
  resources: ["pods"]
  verbs: ["get", "list"]
`))
	require.NoError(t, err)
	assert.Equal(t, "pod-reader", obj.GetName())
	rules, found, err := unstructured.NestedSlice(obj.Object, "rules")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, rules, 1)

	_, err = ParseManifest([]byte("metadata: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidManifest)

	_, err = ParseManifest([]byte(`{"kind":"Role","metadata":{}}`))
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestConformClusterScoped(t *testing.T) {
	obj := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"name": "viewer", "namespace": "ignored"},
	}}
	require.NoError(t, Conform(ClusterRoles, obj))
	assert.Empty(t, obj.GetNamespace())
	assert.Equal(t, "ClusterRole", obj.GetKind())
}

func TestRowID(t *testing.T) {
	obj := unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{"name": "r", "namespace": "ns"},
	}}
	assert.Equal(t, "ns/r", RowID(obj))
	obj.SetUID("abc")
	assert.Equal(t, "abc", RowID(obj))
}

func TestManifestYAMLDropsManagedFields(t *testing.T) {
	obj := &unstructured.Unstructured{Object: map[string]any{
		"kind": "Role",
		"metadata": map[string]any{
			"name":          "r",
			"managedFields": []any{map[string]any{"manager": "kubectl"}},
		},
	}}
	y, err := ManifestYAML(obj)
	require.NoError(t, err)
	assert.Contains(t, y, "name: r")
	assert.NotContains(t, y, "managedFields")
	_, found, _ := unstructured.NestedSlice(obj.Object, "metadata", "managedFields")
	assert.True(t, found, "input must not be modified")
}
