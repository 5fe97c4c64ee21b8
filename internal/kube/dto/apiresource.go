package dto

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

type APIResource struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Group        string   `json:"group"`
	Version      string   `json:"version"`
	Resource     string   `json:"resource"`
	ResourceKind string   `json:"resourceKind"`
	Namespaced   bool     `json:"namespaced"`
	Verbs        []string `json:"verbs,omitempty"`
	ShortNames   []string `json:"shortNames,omitempty"`
}
