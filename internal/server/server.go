package server

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"rbacview/internal/config"
	"rbacview/internal/metrics"
	"rbacview/internal/notify"
	"rbacview/internal/pages"
	"rbacview/internal/resource"
	"rbacview/internal/store"
	"rbacview/internal/table"
)

//go:embed templates
var templateFS embed.FS

// Server is the dashboard: one page per resource type rendered from the
// shared hook factory.
type Server struct {
	cfg     *config.Config
	factory *resource.Factory
	session *store.Session
	configs table.ConfigStore
	hub     *notify.Hub
	state   *appState
	tmpl    map[string]*template.Template

	// launchToken is minted per start and handed to the browser in the opened
	// URL. Without it no page or action is served.
	launchToken string
}

func New(cfg *config.Config, factory *resource.Factory, session *store.Session, configs table.ConfigStore, hub *notify.Hub, launchToken string) (*Server, error) {
	if launchToken == "" {
		return nil, errors.New("dashboard launch token is required")
	}
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		factory: factory,
		session: session,
		configs: configs,
		hub:     hub,
		state:   newAppState(cfg.PageSize),
		tmpl:    tmpl,

		launchToken: launchToken,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "backend": s.factory.Client().BaseURL()})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(a chi.Router) {
		a.Use(s.launchMiddleware)
		a.Use(sameOriginMiddleware)

		a.Get("/login", s.loginForm)
		a.Post("/login", s.login)
		a.Post("/logout", s.logout)

		a.Group(s.sessionRoutes)
	})

	return r
}

// sessionRoutes need a stored backend token on top of the launch cookie.
func (s *Server) sessionRoutes(p chi.Router) {
	p.Use(s.sessionMiddleware)

	p.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/"+pages.All()[0].Slug(), http.StatusSeeOther)
	})
	p.Route("/ui/{kind}", func(ui chi.Router) {
		ui.Get("/", s.handlePage)
		ui.Post("/state", s.handleState)
		ui.Post("/create", s.handleCreate)
		ui.Post("/delete", s.handleDelete)
		ui.Get("/detail", s.handleDetail)
		ui.Post("/update", s.handleUpdate)
	})

	p.Handle("/ws/notifications", &notify.WS{Hub: s.hub})
	p.Get("/api/notifications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": s.hub.Recent()})
	})
}

// sessionMiddleware sends visitors without a stored token to the login form.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := s.session.Token()
		if err != nil {
			log.WithError(err).Error("read session token")
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if token == "" {
			if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": ww.Status(),
		}).Debug("dashboard request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func loadTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"sortMark": func(dir string) string {
			switch dir {
			case "asc":
				return " ▲"
			case "desc":
				return " ▼"
			}
			return ""
		},
		"inc": func(i int) int { return i + 1 },
	}
	out := map[string]*template.Template{}
	for _, name := range []string{"page.html", "detail.html", "login.html"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl[name].ExecuteTemplate(w, "layout.html", data); err != nil {
		log.WithError(err).WithField("template", name).Error("render page")
	}
}
