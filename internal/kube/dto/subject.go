package dto

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// Subject is a user or group named by at least one binding. Kubernetes has
// no object for either, so the record is synthesised from the bindings.
type Subject struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Bindings []SubjectBinding `json:"bindings"`
}

type SubjectBinding struct {
	Kind      string     `json:"kind"`
	Name      string     `json:"name"`
	Namespace string     `json:"namespace,omitempty"`
	RoleRef   RoleRefDTO `json:"roleRef"`
}

type RoleRefDTO struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}
