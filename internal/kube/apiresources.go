package kube

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/discovery"

	"rbacview/internal/cluster"
	"rbacview/internal/kube/dto"
)

// ListAPIResources returns the resources served by the cluster at their
// group's preferred version. Subresources are skipped. Groups that fail
// discovery are logged and left out.
func ListAPIResources(c *cluster.Clients) ([]dto.APIResource, error) {
	groups, lists, err := c.Discovery.ServerGroupsAndResources()
	if err != nil {
		if !discovery.IsGroupDiscoveryFailedError(err) {
			return nil, err
		}
		log.WithError(err).Warn("partial API discovery")
	}

	preferred := map[string]string{}
	for _, g := range groups {
		if g != nil && g.PreferredVersion.Version != "" {
			preferred[g.Name] = g.PreferredVersion.Version
		}
	}

	out := []dto.APIResource{}
	for _, list := range lists {
		if list == nil {
			continue
		}
		gv, err := schema.ParseGroupVersion(list.GroupVersion)
		if err != nil {
			continue
		}
		if v, ok := preferred[gv.Group]; ok && v != gv.Version {
			continue
		}
		for _, r := range list.APIResources {
			if strings.Contains(r.Name, "/") {
				continue
			}
			name := r.Name
			if gv.Group != "" {
				name += "." + gv.Group
			}
			out = append(out, dto.APIResource{
				TypeMeta: metav1.TypeMeta{Kind: "APIResource", APIVersion: "v1"},
				ObjectMeta: metav1.ObjectMeta{
					Name: name,
					UID:  types.UID(gv.WithResource(r.Name).String()),
				},
				Group:        gv.Group,
				Version:      gv.Version,
				Resource:     r.Name,
				ResourceKind: r.Kind,
				Namespaced:   r.Namespaced,
				Verbs:        r.Verbs,
				ShortNames:   r.ShortNames,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
