package kube

import (
	"context"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
)

func ListRoles(ctx context.Context, c *cluster.Clients, namespace string) ([]rbacv1.Role, error) {
	items, err := c.Clientset.RbacV1().Roles(listNamespace(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return prepareAll(items.Items, roleGVK), nil
}

func GetRole(ctx context.Context, c *cluster.Clients, namespace, name string) (*rbacv1.Role, error) {
	role, err := c.Clientset.RbacV1().Roles(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	prepare(role, roleGVK)
	return role, nil
}

func CreateRole(ctx context.Context, c *cluster.Clients, role *rbacv1.Role) (*rbacv1.Role, error) {
	role.Rules = normalizeRules(role.Rules)
	out, err := c.Clientset.RbacV1().Roles(role.Namespace).Create(ctx, role, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, roleGVK)
	return out, nil
}

// UpdateRole replaces a role. A missing resourceVersion is taken from the
// live object, so the last writer wins.
func UpdateRole(ctx context.Context, c *cluster.Clients, role *rbacv1.Role) (*rbacv1.Role, error) {
	roles := c.Clientset.RbacV1().Roles(role.Namespace)
	if role.ResourceVersion == "" {
		cur, err := roles.Get(ctx, role.Name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		role.ResourceVersion = cur.ResourceVersion
	}
	role.Rules = normalizeRules(role.Rules)
	out, err := roles.Update(ctx, role, metav1.UpdateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, roleGVK)
	return out, nil
}

func DeleteRole(ctx context.Context, c *cluster.Clients, namespace, name string) error {
	return c.Clientset.RbacV1().Roles(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}
