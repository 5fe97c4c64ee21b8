package kube

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"rbacview/internal/cluster"
	"rbacview/internal/kube/dto"
)

// subjectUIDSpace seeds the stable UIDs of synthesised subject records.
var subjectUIDSpace = uuid.MustParse("6f1c7d3e-2b8a-4c55-9e41-0d7a9b3f5e21")

// ListSubjects returns every distinct subject of the given kind (User or
// Group) referenced by a RoleBinding or ClusterRoleBinding, sorted by name.
func ListSubjects(ctx context.Context, c *cluster.Clients, kind string) ([]dto.Subject, error) {
	var (
		rbs  *rbacv1.RoleBindingList
		crbs *rbacv1.ClusterRoleBindingList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rbs, err = c.Clientset.RbacV1().RoleBindings(metav1.NamespaceAll).List(gctx, metav1.ListOptions{})
		return err
	})
	g.Go(func() error {
		var err error
		crbs, err = c.Clientset.RbacV1().ClusterRoleBindings().List(gctx, metav1.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := map[string]*dto.Subject{}
	add := func(s rbacv1.Subject, meta metav1.ObjectMeta, bindingKind string, ref rbacv1.RoleRef) {
		if s.Kind != kind || s.Name == "" {
			return
		}
		sub, ok := byName[s.Name]
		if !ok {
			sub = &dto.Subject{
				TypeMeta: metav1.TypeMeta{Kind: kind, APIVersion: rbacv1.SchemeGroupVersion.String()},
				ObjectMeta: metav1.ObjectMeta{
					Name:              s.Name,
					UID:               types.UID(uuid.NewSHA1(subjectUIDSpace, []byte(kind+"/"+s.Name)).String()),
					CreationTimestamp: meta.CreationTimestamp,
				},
			}
			byName[s.Name] = sub
		}
		if !meta.CreationTimestamp.IsZero() && (sub.CreationTimestamp.IsZero() || meta.CreationTimestamp.Before(&sub.CreationTimestamp)) {
			sub.CreationTimestamp = meta.CreationTimestamp
		}
		sub.Bindings = append(sub.Bindings, dto.SubjectBinding{
			Kind:      bindingKind,
			Name:      meta.Name,
			Namespace: meta.Namespace,
			RoleRef:   dto.RoleRefDTO{Kind: ref.Kind, Name: ref.Name},
		})
	}

	for _, rb := range rbs.Items {
		for _, s := range normalizeSubjects(rb.Namespace, rb.Subjects) {
			add(s, rb.ObjectMeta, "RoleBinding", rb.RoleRef)
		}
	}
	for _, crb := range crbs.Items {
		for _, s := range normalizeSubjects("", crb.Subjects) {
			add(s, crb.ObjectMeta, "ClusterRoleBinding", crb.RoleRef)
		}
	}

	out := make([]dto.Subject, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
