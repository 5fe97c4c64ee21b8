// Package pages describes the screen of each resource type: its columns,
// the YAML skeleton offered by the create form and the actions it allows.
package pages

import (
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"rbacview/internal/resource"
	"rbacview/internal/table"
)

type Page struct {
	Kind    resource.Kind
	Title   string
	Columns []table.Column[Record]

	// Skeleton prefills the create form. Empty when the kind has no create
	// endpoint.
	Skeleton string
}

// Slug is the URL path segment of the page, e.g. "rolebindings".
func (p Page) Slug() string { return strings.ToLower(string(p.Kind)) }

// NewTable returns a fresh table over the page's columns, keyed by the kind
// so saved configs are per page.
func (p Page) NewTable(opts ...table.Option) *table.Table[Record] {
	return table.New(string(p.Kind), p.Columns, resource.RowID, opts...)
}

var pages = map[resource.Kind]Page{
	resource.Roles: {
		Title: "Roles",
		Columns: []table.Column[Record]{
			nameColumn(),
			namespaceColumn(),
			countColumn("rules", "Rules", "rules"),
			ageColumn(),
		},
		Skeleton: `apiVersion: rbac.authorization.k8s.io/v1
kind: Role
metadata:
  name: pod-reader
  namespace: default
rules:
- apiGroups: [""]
  resources: ["pods"]
  verbs: ["get", "list", "watch"]
`,
	},
	resource.RoleBindings: {
		Title: "Role Bindings",
		Columns: []table.Column[Record]{
			nameColumn(),
			namespaceColumn(),
			roleRefColumn(),
			subjectsColumn(),
			ageColumn(),
		},
		Skeleton: `apiVersion: rbac.authorization.k8s.io/v1
kind: RoleBinding
metadata:
  name: read-pods
  namespace: default
subjects:
- kind: User
  name: jane
  apiGroup: rbac.authorization.k8s.io
roleRef:
  kind: Role
  name: pod-reader
  apiGroup: rbac.authorization.k8s.io
`,
	},
	resource.ClusterRoles: {
		Title: "Cluster Roles",
		Columns: []table.Column[Record]{
			nameColumn(),
			countColumn("rules", "Rules", "rules"),
			{
				ID: "aggregated", Header: "Aggregated", Sortable: true,
				Value: func(r Record) string {
					_, found, _ := unstructured.NestedMap(r.Object, "aggregationRule")
					return yesNo(found)
				},
			},
			ageColumn(),
		},
		Skeleton: `apiVersion: rbac.authorization.k8s.io/v1
kind: ClusterRole
metadata:
  name: secret-reader
rules:
- apiGroups: [""]
  resources: ["secrets"]
  verbs: ["get", "watch", "list"]
`,
	},
	resource.ClusterRoleBindings: {
		Title: "Cluster Role Bindings",
		Columns: []table.Column[Record]{
			nameColumn(),
			roleRefColumn(),
			subjectsColumn(),
			ageColumn(),
		},
		Skeleton: `apiVersion: rbac.authorization.k8s.io/v1
kind: ClusterRoleBinding
metadata:
  name: read-secrets-global
subjects:
- kind: Group
  name: manager
  apiGroup: rbac.authorization.k8s.io
roleRef:
  kind: ClusterRole
  name: secret-reader
  apiGroup: rbac.authorization.k8s.io
`,
	},
	resource.Namespaces: {
		Title: "Namespaces",
		Columns: []table.Column[Record]{
			nameColumn(),
			stringColumn("status", "Status", true, "status", "phase"),
			{
				ID: "labels", Header: "Labels", Filterable: true, Hidden: true,
				Value: func(r Record) string {
					return labelsString(r.GetLabels())
				},
			},
			ageColumn(),
		},
		Skeleton: `apiVersion: v1
kind: Namespace
metadata:
  name: team-a
`,
	},
	resource.ServiceAccounts: {
		Title: "Service Accounts",
		Columns: []table.Column[Record]{
			nameColumn(),
			namespaceColumn(),
			countColumn("secrets", "Secrets", "secrets"),
			ageColumn(),
		},
		Skeleton: `apiVersion: v1
kind: ServiceAccount
metadata:
  name: build-robot
  namespace: default
`,
	},
	resource.Users:  subjectPage("Users"),
	resource.Groups: subjectPage("Groups"),
	resource.AdminUsers: {
		Title: "Admin Users",
		Columns: []table.Column[Record]{
			nameColumn(),
			stringColumn("email", "Email", true, "spec", "email"),
			stringColumn("role", "Role", true, "spec", "role"),
			{
				ID: "status", Header: "Status", Sortable: true, Filterable: true,
				Value: func(r Record) string {
					if disabled, _, _ := unstructured.NestedBool(r.Object, "spec", "disabled"); disabled {
						return "Disabled"
					}
					return "Active"
				},
			},
			ageColumn(),
		},
		Skeleton: `apiVersion: rbacview/v1
kind: AdminUser
metadata:
  name: jane
spec:
  email: jane@example.com
  role: viewer
`,
	},
	resource.APIResources: {
		Title: "API Resources",
		Columns: []table.Column[Record]{
			stringColumn("resource", "Resource", true, "resource"),
			stringColumn("kind", "Kind", true, "resourceKind"),
			stringColumn("group", "Group", true, "group"),
			stringColumn("version", "Version", false, "version"),
			{
				ID: "namespaced", Header: "Namespaced", Sortable: true,
				Value: func(r Record) string {
					b, _, _ := unstructured.NestedBool(r.Object, "namespaced")
					return yesNo(b)
				},
			},
			stringColumn("shortNames", "Short Names", true, "shortNames"),
			{
				ID: "verbs", Header: "Verbs", Filterable: true, Hidden: true,
				Value: func(r Record) string { return str(r, "verbs") },
			},
		},
	},
	resource.AuditLogs: {
		Title: "Audit Logs",
		Columns: []table.Column[Record]{
			{
				ID: "time", Header: "Time", Sortable: true,
				Value: func(r Record) string {
					ts := r.GetCreationTimestamp()
					return ts.UTC().Format(time.RFC3339)
				},
			},
			stringColumn("action", "Action", true, "action"),
			stringColumn("resource", "Resource", true, "resource"),
			{
				ID: "target", Header: "Target", Sortable: true, Filterable: true,
				Value: func(r Record) string {
					ns, name := str(r, "targetNamespace"), str(r, "targetName")
					if ns == "" {
						return name
					}
					return ns + "/" + name
				},
			},
			stringColumn("outcome", "Outcome", true, "outcome"),
			stringColumn("code", "Code", false, "code"),
			{
				ID: "error", Header: "Error", Filterable: true, Hidden: true,
				Value: func(r Record) string { return str(r, "error") },
			},
		},
	},
}

func subjectPage(title string) Page {
	return Page{
		Title: title,
		Columns: []table.Column[Record]{
			nameColumn(),
			countColumn("bindings", "Bindings", "bindings"),
			{
				ID: "roles", Header: "Roles", Filterable: true,
				Value: func(r Record) string {
					return joinItems(r, func(m map[string]any) string {
						ref, _ := m["roleRef"].(map[string]any)
						kind, _ := ref["kind"].(string)
						name, _ := ref["name"].(string)
						return kind + "/" + name
					}, "bindings")
				},
			},
			ageColumn(),
		},
	}
}

func init() {
	for k, p := range pages {
		p.Kind = k
		pages[k] = p
	}
}

// For returns the page of kind.
func For(kind resource.Kind) (Page, error) {
	p, ok := pages[kind]
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", resource.ErrUnknownKind, kind)
	}
	return p, nil
}

// All returns every page in navigation order.
func All() []Page {
	out := make([]Page, 0, len(pages))
	for _, k := range resource.Kinds() {
		if p, ok := pages[k]; ok {
			out = append(out, p)
		}
	}
	return out
}
