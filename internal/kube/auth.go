package kube

import (
	"context"

	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
)

type AccessReviewRequest struct {
	Verb      string   `json:"verb"`
	Resource  string   `json:"resource"`
	Group     string   `json:"group"`
	Namespace *string  `json:"namespace"`
	Name      string   `json:"name"`
	User      string   `json:"user"`
	Groups    []string `json:"groups"`
}

type AccessReviewResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ReviewAccess asks the API server whether the request is allowed. Without a
// user or groups the caller's own access is reviewed.
func ReviewAccess(ctx context.Context, c *cluster.Clients, req AccessReviewRequest) (AccessReviewResult, error) {
	attrs := &authorizationv1.ResourceAttributes{
		Verb:     req.Verb,
		Resource: req.Resource,
		Group:    req.Group,
		Name:     req.Name,
	}
	if req.Namespace != nil && *req.Namespace != "" {
		attrs.Namespace = *req.Namespace
	}

	if req.User == "" && len(req.Groups) == 0 {
		review := &authorizationv1.SelfSubjectAccessReview{
			Spec: authorizationv1.SelfSubjectAccessReviewSpec{ResourceAttributes: attrs},
		}
		res, err := c.Clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
		if err != nil {
			return AccessReviewResult{}, err
		}
		return AccessReviewResult{Allowed: res.Status.Allowed, Reason: res.Status.Reason}, nil
	}

	review := &authorizationv1.SubjectAccessReview{
		Spec: authorizationv1.SubjectAccessReviewSpec{
			ResourceAttributes: attrs,
			User:               req.User,
			Groups:             req.Groups,
		},
	}
	res, err := c.Clientset.AuthorizationV1().SubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return AccessReviewResult{}, err
	}
	return AccessReviewResult{Allowed: res.Status.Allowed, Reason: res.Status.Reason}, nil
}
