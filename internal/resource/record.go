package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Collection is a list of records in backend order. Cached collections are
// shared between callers and must not be modified.
type Collection []unstructured.Unstructured

// Target identifies one record.
type Target struct {
	Namespace string
	Name      string
}

func (t Target) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "/" + t.Name
}

// ParseTarget parses "name" or "namespace/name".
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	ns, name, found := strings.Cut(s, "/")
	if !found {
		name, ns = ns, ""
	}
	if name == "" || strings.Contains(name, "/") {
		return Target{}, fmt.Errorf("invalid target %q, want name or namespace/name", s)
	}
	return Target{Namespace: ns, Name: name}, nil
}

func TargetOf(obj unstructured.Unstructured) Target {
	return Target{Namespace: obj.GetNamespace(), Name: obj.GetName()}
}

// RowID is metadata.uid, or namespace/name for records without one.
func RowID(obj unstructured.Unstructured) string {
	if uid := string(obj.GetUID()); uid != "" {
		return uid
	}
	return TargetOf(obj).String()
}

var ErrInvalidManifest = errors.New("invalid manifest")

// ParseManifest decodes a YAML or JSON document into a record.
func ParseManifest(data []byte) (*unstructured.Unstructured, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	obj := map[string]any{}
	if err := json.Unmarshal(j, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	u := &unstructured.Unstructured{Object: obj}
	if u.GetName() == "" {
		return nil, fmt.Errorf("%w: metadata.name is required", ErrInvalidManifest)
	}
	return u, nil
}

// Conform fills kind and apiVersion for k when missing and rejects records of
// another kind.
func Conform(k Kind, obj *unstructured.Unstructured) error {
	if !k.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	if got := obj.GetKind(); got != "" && got != k.ObjectKind() {
		return fmt.Errorf("%w: kind %s does not belong to %s", ErrInvalidManifest, got, k)
	}
	if obj.GetKind() == "" {
		obj.SetKind(k.ObjectKind())
	}
	if obj.GetAPIVersion() == "" {
		obj.SetAPIVersion(k.APIVersion())
	}
	if k.Namespaced() && obj.GetNamespace() == "" {
		obj.SetNamespace("default")
	}
	if !k.Namespaced() {
		obj.SetNamespace("")
	}
	return nil
}

// ManifestYAML renders a record for the YAML editor, without managedFields.
func ManifestYAML(obj *unstructured.Unstructured) (string, error) {
	cp := obj.DeepCopy()
	unstructured.RemoveNestedField(cp.Object, "metadata", "managedFields")
	b, err := json.Marshal(cp.Object)
	if err != nil {
		return "", err
	}
	y, err := yaml.JSONToYAML(b)
	if err != nil {
		return "", err
	}
	return string(y), nil
}
