package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"rbacview/internal/cluster"
	"rbacview/internal/metrics"
	"rbacview/internal/store"
)

const requestTimeout = 20 * time.Second

// Server is the REST backend the dashboard talks to. It serves RBAC objects
// of the active kubeconfig context.
type Server struct {
	mgr    *cluster.Manager
	token  string
	audit  *AuditLog
	admins *AdminUsers
}

func New(mgr *cluster.Manager, token string, st *store.Store) *Server {
	return &Server{
		mgr:    mgr,
		token:  token,
		audit:  NewAuditLog(st, DefaultAuditLimit),
		admins: NewAdminUsers(st),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":            true,
			"activeContext": s.mgr.ActiveContext(),
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(p chi.Router) {
		p.Use(s.authMiddleware)
		p.Route("/api", s.apiRoutes)
		p.Route("/admin", s.adminRoutes)
	})

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if strings.HasPrefix(token, "Bearer ") {
			token = strings.TrimPrefix(token, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token != s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.BackendRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"duration": time.Since(start),
		}).Debug("backend request")
	})
}

type clientsFunc func(ctx context.Context, c *cluster.Clients) (any, error)

// withClients runs fn against the active context's clients and writes its
// result, or the mapped error.
func (s *Server) withClients(w http.ResponseWriter, r *http.Request, status int, fn clientsFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clients, active, err := s.mgr.GetClients(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "active": active})
		return
	}

	v, err := fn(ctx, clients)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "active": active})
		return
	}
	writeJSON(w, status, v)
}

// list wraps the returned items in the List envelope.
func (s *Server) list(w http.ResponseWriter, r *http.Request, fn clientsFunc) {
	s.withClients(w, r, http.StatusOK, func(ctx context.Context, c *cluster.Clients) (any, error) {
		items, err := fn(ctx, c)
		if err != nil {
			return nil, err
		}
		return map[string]any{"active": s.mgr.ActiveContext(), "items": items}, nil
	})
}

// statusFor maps Kubernetes API errors to their HTTP status. Everything else
// is a 500.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	var st apierrors.APIStatus
	if errors.As(err, &st) {
		if code := int(st.Status().Code); code >= http.StatusBadRequest {
			return code
		}
	}
	return http.StatusInternalServerError
}

// writeJSON replaces error messages of server-side failures with a generic
// text. Client errors keep the API server's message.
func writeJSON(w http.ResponseWriter, status int, v any) {
	if status >= http.StatusInternalServerError {
		if payload, ok := v.(map[string]any); ok {
			if msg, ok := payload["error"].(string); ok && strings.TrimSpace(msg) != "" {
				log.WithField("status", status).Warn(msg)
				payload["error"] = sanitizeErrorMessage(status)
				v = payload
			}
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sanitizeErrorMessage(status int) string {
	switch status {
	case http.StatusGatewayTimeout:
		return "timed out"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "request failed"
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierrors.NewBadRequest("invalid body: " + err.Error())
	}
	return nil
}
