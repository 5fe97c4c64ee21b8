package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
)

func ListNamespaces(ctx context.Context, c *cluster.Clients) ([]corev1.Namespace, error) {
	nsList, err := c.Clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return prepareAll(nsList.Items, namespaceGVK), nil
}

func CreateNamespace(ctx context.Context, c *cluster.Clients, ns *corev1.Namespace) (*corev1.Namespace, error) {
	ns.Namespace = ""
	out, err := c.Clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		return nil, err
	}
	prepare(out, namespaceGVK)
	return out, nil
}

func DeleteNamespace(ctx context.Context, c *cluster.Clients, name string) error {
	return c.Clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
}
