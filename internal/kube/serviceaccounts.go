package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
)

func ListServiceAccounts(ctx context.Context, c *cluster.Clients, namespace string) ([]corev1.ServiceAccount, error) {
	items, err := c.Clientset.CoreV1().ServiceAccounts(listNamespace(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return prepareAll(items.Items, serviceAccountGVK), nil
}

func CreateServiceAccount(ctx context.Context, c *cluster.Clients, sa *corev1.ServiceAccount) (*corev1.ServiceAccount, error) {
	out, err := c.Clientset.CoreV1().ServiceAccounts(sa.Namespace).Create(ctx, sa, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, serviceAccountGVK)
	return out, nil
}

func DeleteServiceAccount(ctx context.Context, c *cluster.Clients, namespace, name string) error {
	return c.Clientset.CoreV1().ServiceAccounts(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}
