package kube

import (
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// AllNamespaces is the namespace value that lists across every namespace.
const AllNamespaces = "all"

var (
	roleGVK               = rbacv1.SchemeGroupVersion.WithKind("Role")
	roleBindingGVK        = rbacv1.SchemeGroupVersion.WithKind("RoleBinding")
	clusterRoleGVK        = rbacv1.SchemeGroupVersion.WithKind("ClusterRole")
	clusterRoleBindingGVK = rbacv1.SchemeGroupVersion.WithKind("ClusterRoleBinding")
	namespaceGVK          = corev1.SchemeGroupVersion.WithKind("Namespace")
	serviceAccountGVK     = corev1.SchemeGroupVersion.WithKind("ServiceAccount")
)

type object interface {
	metav1.Object
	runtime.Object
}

// prepare strips managedFields and fills the TypeMeta that typed clients
// leave empty on returned objects.
func prepare(obj object, gvk schema.GroupVersionKind) {
	obj.SetManagedFields(nil)
	obj.GetObjectKind().SetGroupVersionKind(gvk)
}

func prepareAll[T any, PT interface {
	*T
	object
}](items []T, gvk schema.GroupVersionKind) []T {
	if items == nil {
		return []T{}
	}
	for i := range items {
		prepare(PT(&items[i]), gvk)
	}
	return items
}

func listNamespace(ns string) string {
	if ns == AllNamespaces {
		return metav1.NamespaceAll
	}
	return ns
}
