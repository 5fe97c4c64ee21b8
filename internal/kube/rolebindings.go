package kube

import (
	"context"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
)

func ListRoleBindings(ctx context.Context, c *cluster.Clients, namespace string) ([]rbacv1.RoleBinding, error) {
	items, err := c.Clientset.RbacV1().RoleBindings(listNamespace(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return prepareAll(items.Items, roleBindingGVK), nil
}

func GetRoleBinding(ctx context.Context, c *cluster.Clients, namespace, name string) (*rbacv1.RoleBinding, error) {
	rb, err := c.Clientset.RbacV1().RoleBindings(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	prepare(rb, roleBindingGVK)
	return rb, nil
}

func CreateRoleBinding(ctx context.Context, c *cluster.Clients, rb *rbacv1.RoleBinding) (*rbacv1.RoleBinding, error) {
	if err := validateRoleRef(roleBindingGVK, rb.Name, rb.RoleRef, "Role", "ClusterRole"); err != nil {
		return nil, err
	}
	if rb.RoleRef.APIGroup == "" {
		rb.RoleRef.APIGroup = rbacv1.GroupName
	}
	rb.Subjects = normalizeSubjects(rb.Namespace, rb.Subjects)
	out, err := c.Clientset.RbacV1().RoleBindings(rb.Namespace).Create(ctx, rb, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, roleBindingGVK)
	return out, nil
}

func DeleteRoleBinding(ctx context.Context, c *cluster.Clients, namespace, name string) error {
	return c.Clientset.RbacV1().RoleBindings(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}
