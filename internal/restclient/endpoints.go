package restclient

import (
	"net/http"
	"net/url"
	"strings"
)

// Param is a single query parameter. Endpoints keep their parameters in
// declaration order because the backend paths are fixed.
type Param struct {
	Key   string
	Value string
}

type Endpoint struct {
	Method string
	Path   string
	Params []Param
}

// URI returns the path with its query string, parameters in declaration order.
func (e Endpoint) URI() string {
	if len(e.Params) == 0 {
		return e.Path
	}
	var b strings.Builder
	b.WriteString(e.Path)
	for i, p := range e.Params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func (e Endpoint) String() string {
	return e.Method + " " + e.URI()
}

func ep(method, path string, kv ...string) Endpoint {
	e := Endpoint{Method: method, Path: path}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Params = append(e.Params, Param{Key: kv[i], Value: kv[i+1]})
	}
	return e
}

// Roles

func RoleList() Endpoint { return ep(http.MethodGet, "/api/roles", "namespace", "all") }
func RoleDetails(namespace, name string) Endpoint {
	return ep(http.MethodGet, "/api/roles/details", "roleName", name, "namespace", namespace)
}
func RoleUpdate(namespace, name string) Endpoint {
	return ep(http.MethodPut, "/api/roles", "namespace", namespace, "name", name)
}
func RoleCreate(namespace string) Endpoint {
	return ep(http.MethodPost, "/api/roles", "namespace", namespace)
}
func RoleDelete(namespace, name string) Endpoint {
	return ep(http.MethodDelete, "/api/roles", "namespace", namespace, "name", name)
}

// RoleBindings. The details path is singular on the backend.

func RoleBindingList() Endpoint { return ep(http.MethodGet, "/api/rolebindings") }
func RoleBindingDetails(namespace, name string) Endpoint {
	return ep(http.MethodGet, "/api/rolebinding/details", "name", name, "namespace", namespace)
}
func RoleBindingCreate(namespace string) Endpoint {
	return ep(http.MethodPost, "/api/rolebindings", "namespace", namespace)
}
func RoleBindingDelete(namespace, name string) Endpoint {
	return ep(http.MethodDelete, "/api/rolebindings", "namespace", namespace, "name", name)
}

// ClusterRoles

func ClusterRoleList() Endpoint { return ep(http.MethodGet, "/api/clusterroles") }
func ClusterRoleDetails(name string) Endpoint {
	return ep(http.MethodGet, "/api/clusterroles/details", "clusterRoleName", name)
}
func ClusterRoleCreate() Endpoint { return ep(http.MethodPost, "/api/clusterroles") }
func ClusterRoleDelete(name string) Endpoint {
	return ep(http.MethodDelete, "/api/clusterroles", "name", name)
}

// ClusterRoleBindings

func ClusterRoleBindingList() Endpoint { return ep(http.MethodGet, "/api/clusterrolebindings") }
func ClusterRoleBindingDetails(name string) Endpoint {
	return ep(http.MethodGet, "/api/clusterrolebindings/details", "name", name)
}
func ClusterRoleBindingCreate() Endpoint { return ep(http.MethodPost, "/api/clusterrolebindings") }
func ClusterRoleBindingDelete(name string) Endpoint {
	return ep(http.MethodDelete, "/api/clusterrolebindings", "name", name)
}

// Namespaces

func NamespaceList() Endpoint   { return ep(http.MethodGet, "/api/namespaces") }
func NamespaceCreate() Endpoint { return ep(http.MethodPost, "/api/namespaces") }
func NamespaceDelete(name string) Endpoint {
	return ep(http.MethodDelete, "/api/namespaces", "name", name)
}

// ServiceAccounts

func ServiceAccountList() Endpoint { return ep(http.MethodGet, "/api/serviceaccounts") }
func ServiceAccountCreate(namespace string) Endpoint {
	return ep(http.MethodPost, "/api/serviceaccounts", "namespace", namespace)
}
func ServiceAccountDelete(namespace, name string) Endpoint {
	return ep(http.MethodDelete, "/api/serviceaccounts", "namespace", namespace, "name", name)
}

// Subjects found in bindings.

func UserList() Endpoint  { return ep(http.MethodGet, "/api/users") }
func GroupList() Endpoint { return ep(http.MethodGet, "/api/groups") }

// Dashboard administrators.

func AdminUserList() Endpoint   { return ep(http.MethodGet, "/admin/users") }
func AdminUserCreate() Endpoint { return ep(http.MethodPost, "/admin/users") }
func AdminUserUpdate(name string) Endpoint {
	return ep(http.MethodPut, "/admin/users", "name", name)
}
func AdminUserDelete(name string) Endpoint {
	return ep(http.MethodDelete, "/admin/users", "name", name)
}

func APIResourceList() Endpoint { return ep(http.MethodGet, "/api/resources") }
func AuditLogList() Endpoint    { return ep(http.MethodGet, "/api/audit-logs") }
func AccessReview() Endpoint    { return ep(http.MethodPost, "/api/auth/can-i") }
