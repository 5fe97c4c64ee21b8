package resource

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the resource type tag. It names a page, a cache entry and a set of
// endpoints.
type Kind string

const (
	Roles               Kind = "Roles"
	RoleBindings        Kind = "RoleBindings"
	ClusterRoles        Kind = "ClusterRoles"
	ClusterRoleBindings Kind = "ClusterRoleBindings"
	Namespaces          Kind = "Namespaces"
	ServiceAccounts     Kind = "ServiceAccounts"
	Users               Kind = "Users"
	Groups              Kind = "Groups"
	AdminUsers          Kind = "AdminUsers"
	APIResources        Kind = "Resources"
	AuditLogs           Kind = "AuditLogs"
)

var (
	ErrUnknownKind = errors.New("unknown resource type")
	ErrUnsupported = errors.New("operation not supported for resource type")
)

type kindInfo struct {
	singular   string
	plural     string
	objectKind string
	apiVersion string
	namespaced bool
}

var kinds = map[Kind]kindInfo{
	Roles:               {"Role", "Roles", "Role", "rbac.authorization.k8s.io/v1", true},
	RoleBindings:        {"RoleBinding", "RoleBindings", "RoleBinding", "rbac.authorization.k8s.io/v1", true},
	ClusterRoles:        {"ClusterRole", "ClusterRoles", "ClusterRole", "rbac.authorization.k8s.io/v1", false},
	ClusterRoleBindings: {"ClusterRoleBinding", "ClusterRoleBindings", "ClusterRoleBinding", "rbac.authorization.k8s.io/v1", false},
	Namespaces:          {"Namespace", "Namespaces", "Namespace", "v1", false},
	ServiceAccounts:     {"ServiceAccount", "ServiceAccounts", "ServiceAccount", "v1", true},
	Users:               {"User", "Users", "User", "rbac.authorization.k8s.io/v1", false},
	Groups:              {"Group", "Groups", "Group", "rbac.authorization.k8s.io/v1", false},
	AdminUsers:          {"Admin user", "Admin users", "AdminUser", "rbacview/v1", false},
	APIResources:        {"API resource", "API resources", "APIResource", "v1", false},
	AuditLogs:           {"Audit log", "Audit logs", "AuditEntry", "rbacview/v1", false},
}

// Kinds returns every known tag in navigation order.
func Kinds() []Kind {
	return []Kind{
		Roles, RoleBindings, ClusterRoles, ClusterRoleBindings,
		Namespaces, ServiceAccounts, Users, Groups,
		AdminUsers, APIResources, AuditLogs,
	}
}

// ParseKind accepts a tag case-insensitively, in plural or singular form,
// e.g. "roles", "Role", "clusterrolebinding", "audit-logs".
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, k := range Kinds() {
		info := kinds[k]
		for _, cand := range []string{string(k), info.singular, info.plural, info.objectKind} {
			c := strings.ToLower(strings.ReplaceAll(cand, " ", ""))
			if norm == c {
				return k, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string { return string(k) }

func (k Kind) Singular() string { return kinds[k].singular }

func (k Kind) Plural() string { return kinds[k].plural }

// ObjectKind is the "kind" field carried by records of this type.
func (k Kind) ObjectKind() string { return kinds[k].objectKind }

func (k Kind) APIVersion() string { return kinds[k].apiVersion }

func (k Kind) Namespaced() bool { return kinds[k].namespaced }

func (k Kind) valid() bool {
	_, ok := kinds[k]
	return ok
}
