package restclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointTable(t *testing.T) {
	cases := []struct {
		got  Endpoint
		want string
	}{
		{RoleList(), "GET /api/roles?namespace=all"},
		{RoleDetails("kube-system", "reader"), "GET /api/roles/details?roleName=reader&namespace=kube-system"},
		{RoleUpdate("default", "editor"), "PUT /api/roles?namespace=default&name=editor"},
		{RoleCreate("default"), "POST /api/roles?namespace=default"},
		{RoleDelete("default", "editor"), "DELETE /api/roles?namespace=default&name=editor"},
		{RoleBindingList(), "GET /api/rolebindings"},
		{RoleBindingDetails("dev", "rb"), "GET /api/rolebinding/details?name=rb&namespace=dev"},
		{ClusterRoleList(), "GET /api/clusterroles"},
		{ClusterRoleDetails("admin"), "GET /api/clusterroles/details?clusterRoleName=admin"},
		{ClusterRoleBindingList(), "GET /api/clusterrolebindings"},
		{ClusterRoleBindingDetails("crb"), "GET /api/clusterrolebindings/details?name=crb"},
		{NamespaceList(), "GET /api/namespaces"},
		{NamespaceDelete("dev"), "DELETE /api/namespaces?name=dev"},
		{UserList(), "GET /api/users"},
		{AdminUserList(), "GET /admin/users"},
		{AdminUserCreate(), "POST /admin/users"},
		{AdminUserUpdate("alice"), "PUT /admin/users?name=alice"},
		{AdminUserDelete("alice"), "DELETE /admin/users?name=alice"},
		{APIResourceList(), "GET /api/resources"},
		{AuditLogList(), "GET /api/audit-logs"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.got.String())
	}
}

func TestEndpointEscapesValues(t *testing.T) {
	e := RoleDetails("team a", "read&write")
	assert.Equal(t, "/api/roles/details?roleName=read%26write&namespace=team+a", e.URI())
}
