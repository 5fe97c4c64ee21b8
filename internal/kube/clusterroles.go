package kube

import (
	"context"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
)

func ListClusterRoles(ctx context.Context, c *cluster.Clients) ([]rbacv1.ClusterRole, error) {
	items, err := c.Clientset.RbacV1().ClusterRoles().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return prepareAll(items.Items, clusterRoleGVK), nil
}

func GetClusterRole(ctx context.Context, c *cluster.Clients, name string) (*rbacv1.ClusterRole, error) {
	cr, err := c.Clientset.RbacV1().ClusterRoles().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	prepare(cr, clusterRoleGVK)
	return cr, nil
}

func CreateClusterRole(ctx context.Context, c *cluster.Clients, cr *rbacv1.ClusterRole) (*rbacv1.ClusterRole, error) {
	cr.Namespace = ""
	cr.Rules = normalizeRules(cr.Rules)
	out, err := c.Clientset.RbacV1().ClusterRoles().Create(ctx, cr, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, clusterRoleGVK)
	return out, nil
}

func DeleteClusterRole(ctx context.Context, c *cluster.Clients, name string) error {
	return c.Clientset.RbacV1().ClusterRoles().Delete(ctx, name, metav1.DeleteOptions{})
}

func ListClusterRoleBindings(ctx context.Context, c *cluster.Clients) ([]rbacv1.ClusterRoleBinding, error) {
	items, err := c.Clientset.RbacV1().ClusterRoleBindings().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return prepareAll(items.Items, clusterRoleBindingGVK), nil
}

func GetClusterRoleBinding(ctx context.Context, c *cluster.Clients, name string) (*rbacv1.ClusterRoleBinding, error) {
	crb, err := c.Clientset.RbacV1().ClusterRoleBindings().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	prepare(crb, clusterRoleBindingGVK)
	return crb, nil
}

func CreateClusterRoleBinding(ctx context.Context, c *cluster.Clients, crb *rbacv1.ClusterRoleBinding) (*rbacv1.ClusterRoleBinding, error) {
	if err := validateRoleRef(clusterRoleBindingGVK, crb.Name, crb.RoleRef, "ClusterRole"); err != nil {
		return nil, err
	}
	crb.Namespace = ""
	if crb.RoleRef.APIGroup == "" {
		crb.RoleRef.APIGroup = rbacv1.GroupName
	}
	crb.Subjects = normalizeSubjects("", crb.Subjects)
	out, err := c.Clientset.RbacV1().ClusterRoleBindings().Create(ctx, crb, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, clusterRoleBindingGVK)
	return out, nil
}

func DeleteClusterRoleBinding(ctx context.Context, c *cluster.Clients, name string) error {
	return c.Clientset.RbacV1().ClusterRoleBindings().Delete(ctx, name, metav1.DeleteOptions{})
}
