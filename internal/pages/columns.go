package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/duration"

	"rbacview/internal/table"
)

// Record is the row type of every page.
type Record = unstructured.Unstructured

var now = time.Now

func nameColumn() table.Column[Record] {
	return table.Column[Record]{
		ID: "name", Header: "Name", Sortable: true, Filterable: true,
		Value: func(r Record) string { return r.GetName() },
	}
}

func namespaceColumn() table.Column[Record] {
	return table.Column[Record]{
		ID: "namespace", Header: "Namespace", Sortable: true, Filterable: true,
		Value: func(r Record) string { return r.GetNamespace() },
	}
}

func ageColumn() table.Column[Record] {
	return table.Column[Record]{
		ID: "age", Header: "Age", Sortable: true,
		Value: func(r Record) string {
			ts := r.GetCreationTimestamp()
			if ts.IsZero() {
				return "-"
			}
			return duration.HumanDuration(now().Sub(ts.Time))
		},
		// Ascending age puts the newest objects first.
		Compare: func(a, b Record) int {
			ta, tb := a.GetCreationTimestamp(), b.GetCreationTimestamp()
			return tb.Time.Compare(ta.Time)
		},
	}
}

func stringColumn(id, header string, filterable bool, fields ...string) table.Column[Record] {
	return table.Column[Record]{
		ID: id, Header: header, Sortable: true, Filterable: filterable,
		Value: func(r Record) string { return str(r, fields...) },
	}
}

func countColumn(id, header string, fields ...string) table.Column[Record] {
	return table.Column[Record]{
		ID: id, Header: header, Sortable: true,
		Value: func(r Record) string { return strconv.Itoa(count(r, fields...)) },
	}
}

func roleRefColumn() table.Column[Record] {
	return table.Column[Record]{
		ID: "role", Header: "Role", Sortable: true, Filterable: true,
		Value: func(r Record) string {
			kind, name := str(r, "roleRef", "kind"), str(r, "roleRef", "name")
			if name == "" {
				return "-"
			}
			return kind + "/" + name
		},
	}
}

func subjectsColumn() table.Column[Record] {
	return table.Column[Record]{
		ID: "subjects", Header: "Subjects", Filterable: true,
		Value: func(r Record) string {
			return joinItems(r, func(m map[string]any) string {
				kind, _ := m["kind"].(string)
				name, _ := m["name"].(string)
				if ns, _ := m["namespace"].(string); ns != "" {
					name = ns + "/" + name
				}
				return kind + ":" + name
			}, "subjects")
		},
	}
}

func str(r Record, fields ...string) string {
	v, found, err := unstructured.NestedFieldNoCopy(r.Object, fields...)
	if err != nil || !found || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func count(r Record, fields ...string) int {
	v, found, err := unstructured.NestedFieldNoCopy(r.Object, fields...)
	if err != nil || !found {
		return 0
	}
	s, _ := v.([]any)
	return len(s)
}

func joinItems(r Record, format func(map[string]any) string, fields ...string) string {
	v, found, err := unstructured.NestedFieldNoCopy(r.Object, fields...)
	if err != nil || !found {
		return ""
	}
	list, _ := v.([]any)
	parts := make([]string, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			parts = append(parts, format(m))
		}
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func labelsString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}
