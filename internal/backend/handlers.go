package backend

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"rbacview/internal/cluster"
	"rbacview/internal/kube"
)

func (s *Server) apiRoutes(api chi.Router) {
	api.Get("/contexts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"active":   s.mgr.ActiveContext(),
			"contexts": s.mgr.ListContexts(),
		})
	})

	api.Post("/context/select", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil || body.Name == "" {
			badRequest(w, "invalid body")
			return
		}
		if err := s.mgr.SetActiveContext(body.Name); err != nil {
			badRequest(w, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"active": s.mgr.ActiveContext()})
	})

	api.Route("/roles", func(rr chi.Router) {
		rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ns := queryOr(r, "namespace", kube.AllNamespaces)
			s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.ListRoles(ctx, c, ns)
			})
		})
		rr.Get("/details", func(w http.ResponseWriter, r *http.Request) {
			ns, name := r.URL.Query().Get("namespace"), r.URL.Query().Get("roleName")
			if ns == "" || name == "" {
				badRequest(w, "namespace and roleName are required")
				return
			}
			s.withClients(w, r, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.GetRole(ctx, c, ns, name)
			})
		})
		rr.Post("/", createHandler(s, "roles", true, kube.CreateRole))
		rr.Put("/", s.updateRole)
		rr.Delete("/", s.deleteHandler("roles", true, kube.DeleteRole))
	})

	api.Route("/rolebindings", func(rr chi.Router) {
		rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ns := queryOr(r, "namespace", kube.AllNamespaces)
			s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.ListRoleBindings(ctx, c, ns)
			})
		})
		rr.Post("/", createHandler(s, "rolebindings", true, kube.CreateRoleBinding))
		rr.Delete("/", s.deleteHandler("rolebindings", true, kube.DeleteRoleBinding))
	})
	api.Get("/rolebinding/details", func(w http.ResponseWriter, r *http.Request) {
		ns, name := r.URL.Query().Get("namespace"), r.URL.Query().Get("name")
		if ns == "" || name == "" {
			badRequest(w, "namespace and name are required")
			return
		}
		s.withClients(w, r, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
			return kube.GetRoleBinding(ctx, c, ns, name)
		})
	})

	api.Route("/clusterroles", func(rr chi.Router) {
		rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.ListClusterRoles(ctx, c)
			})
		})
		rr.Get("/details", func(w http.ResponseWriter, r *http.Request) {
			name := r.URL.Query().Get("clusterRoleName")
			if name == "" {
				badRequest(w, "clusterRoleName is required")
				return
			}
			s.withClients(w, r, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.GetClusterRole(ctx, c, name)
			})
		})
		rr.Post("/", createHandler(s, "clusterroles", false, kube.CreateClusterRole))
		rr.Delete("/", s.deleteHandler("clusterroles", false, clusterScoped(kube.DeleteClusterRole)))
	})

	api.Route("/clusterrolebindings", func(rr chi.Router) {
		rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.ListClusterRoleBindings(ctx, c)
			})
		})
		rr.Get("/details", func(w http.ResponseWriter, r *http.Request) {
			name := r.URL.Query().Get("name")
			if name == "" {
				badRequest(w, "name is required")
				return
			}
			s.withClients(w, r, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.GetClusterRoleBinding(ctx, c, name)
			})
		})
		rr.Post("/", createHandler(s, "clusterrolebindings", false, kube.CreateClusterRoleBinding))
		rr.Delete("/", s.deleteHandler("clusterrolebindings", false, clusterScoped(kube.DeleteClusterRoleBinding)))
	})

	api.Route("/namespaces", func(rr chi.Router) {
		rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.ListNamespaces(ctx, c)
			})
		})
		rr.Post("/", createHandler(s, "namespaces", false, kube.CreateNamespace))
		rr.Delete("/", s.deleteHandler("namespaces", false, clusterScoped(kube.DeleteNamespace)))
	})

	api.Route("/serviceaccounts", func(rr chi.Router) {
		rr.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ns := queryOr(r, "namespace", kube.AllNamespaces)
			s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
				return kube.ListServiceAccounts(ctx, c, ns)
			})
		})
		rr.Post("/", createHandler(s, "serviceaccounts", true, kube.CreateServiceAccount))
		rr.Delete("/", s.deleteHandler("serviceaccounts", true, kube.DeleteServiceAccount))
	})

	api.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
			return kube.ListSubjects(ctx, c, rbacv1.UserKind)
		})
	})
	api.Get("/groups", func(w http.ResponseWriter, r *http.Request) {
		s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
			return kube.ListSubjects(ctx, c, rbacv1.GroupKind)
		})
	})
	api.Get("/resources", func(w http.ResponseWriter, r *http.Request) {
		s.list(w, r, func(ctx context.Context, c *cluster.Clients) (any, error) {
			return kube.ListAPIResources(c)
		})
	})

	api.Get("/audit-logs", func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.audit.List()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": entries})
	})

	api.Post("/auth/can-i", func(w http.ResponseWriter, r *http.Request) {
		var body kube.AccessReviewRequest
		if err := decodeBody(r, &body); err != nil || body.Verb == "" || body.Resource == "" {
			badRequest(w, "invalid body")
			return
		}
		s.withClients(w, r, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
			return kube.ReviewAccess(ctx, c, body)
		})
	})
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	ns, name := r.URL.Query().Get("namespace"), r.URL.Query().Get("name")
	if ns == "" || name == "" {
		badRequest(w, "namespace and name are required")
		return
	}
	role := &rbacv1.Role{}
	if err := decodeBody(r, role); err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
		return
	}
	if role.Name != "" && role.Name != name {
		badRequest(w, "metadata.name does not match the name parameter")
		return
	}
	role.Name, role.Namespace = name, ns

	s.mutate(w, r, mutation{action: "update", resource: "roles", namespace: ns, name: name}, http.StatusOK,
		func(ctx context.Context, c *cluster.Clients) (any, error) {
			out, err := kube.UpdateRole(ctx, c, role)
			if err != nil {
				return nil, err
			}
			return out, nil
		})
}

type mutation struct {
	action    string
	resource  string
	namespace string
	name      string
}

// mutate runs fn like withClients and records the outcome in the audit log.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, m mutation, status int, fn clientsFunc) {
	s.withClients(w, r, status, func(ctx context.Context, c *cluster.Clients) (any, error) {
		v, err := fn(ctx, c)
		e := AuditEntry{
			Action:          m.action,
			Resource:        m.resource,
			TargetNamespace: m.namespace,
			TargetName:      m.name,
			Outcome:         OutcomeSuccess,
			Code:            status,
			RemoteAddr:      r.RemoteAddr,
		}
		if err != nil {
			e.Outcome = OutcomeFailure
			e.Code = statusFor(err)
			e.Error = err.Error()
		}
		s.recordAudit(e)
		return v, err
	})
}

// createHandler decodes the body into a fresh object and creates it. For
// namespaced resources the namespace parameter wins over the body and
// defaults to "default".
func createHandler[T any, PT interface {
	*T
	metav1.Object
}](s *Server, resource string, namespaced bool, create func(context.Context, *cluster.Clients, PT) (PT, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj := PT(new(T))
		if err := decodeBody(r, obj); err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		if namespaced {
			ns := r.URL.Query().Get("namespace")
			if ns == "" {
				ns = obj.GetNamespace()
			}
			if ns == "" {
				ns = metav1.NamespaceDefault
			}
			obj.SetNamespace(ns)
		}
		if obj.GetName() == "" {
			badRequest(w, "metadata.name is required")
			return
		}

		m := mutation{action: "create", resource: resource, namespace: obj.GetNamespace(), name: obj.GetName()}
		s.mutate(w, r, m, http.StatusCreated, func(ctx context.Context, c *cluster.Clients) (any, error) {
			out, err := create(ctx, c, obj)
			if err != nil {
				return nil, err
			}
			return out, nil
		})
	}
}

type deleteFunc func(ctx context.Context, c *cluster.Clients, namespace, name string) error

func clusterScoped(del func(ctx context.Context, c *cluster.Clients, name string) error) deleteFunc {
	return func(ctx context.Context, c *cluster.Clients, _, name string) error {
		return del(ctx, c, name)
	}
}

func (s *Server) deleteHandler(resource string, namespaced bool, del deleteFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, name := r.URL.Query().Get("namespace"), r.URL.Query().Get("name")
		if name == "" || (namespaced && ns == "") {
			if namespaced {
				badRequest(w, "namespace and name are required")
			} else {
				badRequest(w, "name is required")
			}
			return
		}
		if !namespaced {
			ns = ""
		}

		m := mutation{action: "delete", resource: resource, namespace: ns, name: name}
		s.mutate(w, r, m, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
			if err := del(ctx, c, ns, name); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": name}, nil
		})
	}
}

func queryOr(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func (s *Server) recordAudit(e AuditEntry) {
	if err := s.audit.Record(e); err != nil {
		log.WithError(err).Error("write audit entry")
	}
}
