package kube

import (
	"slices"
	"strings"

	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// normalizeRules trims every string list of the rules and drops empty entries.
func normalizeRules(rules []rbacv1.PolicyRule) []rbacv1.PolicyRule {
	if len(rules) == 0 {
		return nil
	}
	out := make([]rbacv1.PolicyRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, rbacv1.PolicyRule{
			APIGroups:       cleanStringSlice(r.APIGroups, true),
			Resources:       cleanStringSlice(r.Resources, false),
			Verbs:           cleanStringSlice(r.Verbs, false),
			ResourceNames:   cleanStringSlice(r.ResourceNames, false),
			NonResourceURLs: cleanStringSlice(r.NonResourceURLs, false),
		})
	}
	return out
}

// normalizeSubjects trims subject fields. ServiceAccount subjects without a
// namespace live in the binding's namespace.
func normalizeSubjects(bindingNamespace string, subjects []rbacv1.Subject) []rbacv1.Subject {
	if len(subjects) == 0 {
		return nil
	}
	out := make([]rbacv1.Subject, 0, len(subjects))
	for _, s := range subjects {
		s.Kind = strings.TrimSpace(s.Kind)
		s.Name = strings.TrimSpace(s.Name)
		s.Namespace = strings.TrimSpace(s.Namespace)
		if s.Kind == rbacv1.ServiceAccountKind && s.Namespace == "" {
			s.Namespace = bindingNamespace
		}
		if s.APIGroup == "" && (s.Kind == rbacv1.UserKind || s.Kind == rbacv1.GroupKind) {
			s.APIGroup = rbacv1.GroupName
		}
		out = append(out, s)
	}
	return out
}

func validateRoleRef(gvk schema.GroupVersionKind, name string, ref rbacv1.RoleRef, kinds ...string) error {
	var errs field.ErrorList
	path := field.NewPath("roleRef")
	if strings.TrimSpace(ref.Name) == "" {
		errs = append(errs, field.Required(path.Child("name"), ""))
	}
	if !slices.Contains(kinds, ref.Kind) {
		errs = append(errs, field.NotSupported(path.Child("kind"), ref.Kind, kinds))
	}
	if ref.APIGroup != "" && ref.APIGroup != rbacv1.GroupName {
		errs = append(errs, field.NotSupported(path.Child("apiGroup"), ref.APIGroup, []string{rbacv1.GroupName}))
	}
	if len(errs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(gvk.GroupKind(), name, errs)
}

// cleanStringSlice trims items and drops empty ones. keepEmpty keeps "" which
// is meaningful in apiGroups (the core group).
func cleanStringSlice(items []string, keepEmpty bool) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		val := strings.TrimSpace(item)
		if val == "" && !keepEmpty {
			continue
		}
		out = append(out, val)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
