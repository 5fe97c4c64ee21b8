package resource

import "rbacview/internal/restclient"

// binding maps one tag to its endpoint constructors. A nil constructor means
// the backend has no such operation for the tag.
type binding struct {
	list    func() restclient.Endpoint
	details func(Target) restclient.Endpoint
	create  func(namespace string) restclient.Endpoint
	update  func(Target) restclient.Endpoint
	delete  func(Target) restclient.Endpoint
}

var registry = map[Kind]binding{
	Roles: {
		list:    restclient.RoleList,
		details: func(t Target) restclient.Endpoint { return restclient.RoleDetails(t.Namespace, t.Name) },
		create:  restclient.RoleCreate,
		update:  func(t Target) restclient.Endpoint { return restclient.RoleUpdate(t.Namespace, t.Name) },
		delete:  func(t Target) restclient.Endpoint { return restclient.RoleDelete(t.Namespace, t.Name) },
	},
	RoleBindings: {
		list:    restclient.RoleBindingList,
		details: func(t Target) restclient.Endpoint { return restclient.RoleBindingDetails(t.Namespace, t.Name) },
		create:  restclient.RoleBindingCreate,
		delete:  func(t Target) restclient.Endpoint { return restclient.RoleBindingDelete(t.Namespace, t.Name) },
	},
	ClusterRoles: {
		list:    restclient.ClusterRoleList,
		details: func(t Target) restclient.Endpoint { return restclient.ClusterRoleDetails(t.Name) },
		create:  func(string) restclient.Endpoint { return restclient.ClusterRoleCreate() },
		delete:  func(t Target) restclient.Endpoint { return restclient.ClusterRoleDelete(t.Name) },
	},
	ClusterRoleBindings: {
		list:    restclient.ClusterRoleBindingList,
		details: func(t Target) restclient.Endpoint { return restclient.ClusterRoleBindingDetails(t.Name) },
		create:  func(string) restclient.Endpoint { return restclient.ClusterRoleBindingCreate() },
		delete:  func(t Target) restclient.Endpoint { return restclient.ClusterRoleBindingDelete(t.Name) },
	},
	Namespaces: {
		list:   restclient.NamespaceList,
		create: func(string) restclient.Endpoint { return restclient.NamespaceCreate() },
		delete: func(t Target) restclient.Endpoint { return restclient.NamespaceDelete(t.Name) },
	},
	ServiceAccounts: {
		list:   restclient.ServiceAccountList,
		create: restclient.ServiceAccountCreate,
		delete: func(t Target) restclient.Endpoint { return restclient.ServiceAccountDelete(t.Namespace, t.Name) },
	},
	Users: {
		list: restclient.UserList,
	},
	Groups: {
		list: restclient.GroupList,
	},
	AdminUsers: {
		list:   restclient.AdminUserList,
		create: func(string) restclient.Endpoint { return restclient.AdminUserCreate() },
		update: func(t Target) restclient.Endpoint { return restclient.AdminUserUpdate(t.Name) },
		delete: func(t Target) restclient.Endpoint { return restclient.AdminUserDelete(t.Name) },
	},
	APIResources: {
		list: restclient.APIResourceList,
	},
	AuditLogs: {
		list: restclient.AuditLogList,
	},
}
