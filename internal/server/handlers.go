package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"rbacview/internal/notify"
	"rbacview/internal/pages"
	"rbacview/internal/resource"
	"rbacview/internal/restclient"
	"rbacview/internal/table"
)

const maxToasts = 5

var pageSizes = []int{10, 25, 50, 100}

type navItem struct {
	Slug   string
	Title  string
	Active bool
}

type layoutData struct {
	Title    string
	Nav      []navItem
	Toasts   []notify.Toast
	Refresh  int
	LoggedIn bool
}

type columnToggle struct {
	ID      string
	Header  string
	Visible bool
}

type rowData struct {
	ID        string
	Namespace string
	Name      string
	Cells     []string
	Selected  bool
}

type pageData struct {
	layoutData
	Slug      string
	View      table.View[pages.Record]
	Rows      []rowData
	Columns   []columnToggle
	PageSizes []int
	Error     string
	Stale     bool
	CanCreate bool
	CanDelete bool
	Skeleton  string
}

type detailData struct {
	layoutData
	Slug      string
	Namespace string
	Name      string
	YAML      string
	CanUpdate bool
	Error     string
}

type loginData struct {
	layoutData
	Error string
}

func (s *Server) layout(title string, active resource.Kind) layoutData {
	var nav []navItem
	for _, p := range pages.All() {
		nav = append(nav, navItem{Slug: p.Slug(), Title: p.Title, Active: p.Kind == active})
	}
	toasts := s.hub.Recent()
	if len(toasts) > maxToasts {
		toasts = toasts[len(toasts)-maxToasts:]
	}
	return layoutData{Title: title, Nav: nav, Toasts: toasts, LoggedIn: true}
}

func (s *Server) hooksFor(kind resource.Kind) (*resource.Hooks, error) {
	h, err := s.factory.For(kind)
	if err != nil {
		return nil, err
	}
	if kind == resource.Roles {
		h = h.WithErrorTitle(roleConflict)
	}
	return h, nil
}

func roleConflict(err error) string {
	if restclient.IsStatus(err, http.StatusConflict) {
		return "Role already exists"
	}
	return ""
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (pages.Page, *resource.Hooks, bool) {
	kind, err := resource.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return pages.Page{}, nil, false
	}
	p, err := pages.For(kind)
	if err != nil {
		http.NotFound(w, r)
		return pages.Page{}, nil, false
	}
	h, err := s.hooksFor(kind)
	if err != nil {
		http.NotFound(w, r)
		return pages.Page{}, nil, false
	}
	return p, h, true
}

// load waits up to the loading grace period for the list. When it is not
// ready by then the page renders a placeholder while the fetch continues in
// the background. Failed fetches fall back to the last known data.
func (s *Server) load(ctx context.Context, h *resource.Hooks) (resource.Collection, bool, error) {
	timer := time.NewTimer(s.cfg.LoadingGrace)
	defer timer.Stop()

	select {
	case res := <-h.Fetch(ctx):
		if res.Err != nil {
			if items, _, ok := h.Snapshot(); ok {
				return items, false, res.Err
			}
			return nil, false, res.Err
		}
		return res.Items, false, nil
	case <-timer.C:
		return nil, true, nil
	case <-ctx.Done():
		return nil, true, ctx.Err()
	}
}

// items returns the last known collection, fetching it when nothing is
// cached.
func (s *Server) items(ctx context.Context, h *resource.Hooks) (resource.Collection, error) {
	if items, _, ok := h.Snapshot(); ok {
		return items, nil
	}
	return h.List(ctx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, h, ok := s.resolve(w, r)
	if !ok {
		return
	}

	items, loading, err := s.load(r.Context(), h)
	data := pageData{
		layoutData: s.layout(p.Title, p.Kind),
		Slug:       p.Slug(),
		PageSizes:  pageSizes,
		CanCreate:  h.CanCreate() && p.Skeleton != "",
		CanDelete:  h.CanDelete(),
		Skeleton:   p.Skeleton,
	}
	if loading {
		data.Refresh = 1
	}
	if err != nil {
		data.Error = errorText(err)
		data.Stale = len(items) > 0
	}

	s.state.with(p, func(t *table.Table[pages.Record]) {
		data.View = t.Render(items, loading)
		for _, c := range p.Columns {
			data.Columns = append(data.Columns, columnToggle{ID: c.ID, Header: c.Header, Visible: t.ColumnVisible(c.ID)})
		}
	})
	for _, row := range data.View.Rows {
		data.Rows = append(data.Rows, rowData{
			ID:        row.ID,
			Namespace: row.Item.GetNamespace(),
			Name:      row.Item.GetName(),
			Cells:     row.Cells,
			Selected:  row.Selected,
		})
	}

	s.render(w, http.StatusOK, "page.html", data)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p, h, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := r.PostForm
	action := form.Get("action")

	var items resource.Collection
	switch action {
	case "next", "prev", "select-page":
		var err error
		if items, err = s.items(r.Context(), h); err != nil {
			s.hub.Notify(notify.Toast{Level: notify.Error, Title: "Failed to load " + p.Title, Message: errorText(err)})
			s.back(w, r, p)
			return
		}
	case "refresh":
		h.Invalidate()
		s.back(w, r, p)
		return
	}

	var (
		toast  *notify.Toast
		badReq error
	)
	s.state.with(p, func(t *table.Table[pages.Record]) {
		switch action {
		case "sort":
			t.ToggleSort(form.Get("column"), form.Get("multi") != "")
		case "filter":
			t.SetFilter(form.Get("q"))
		case "column-filter":
			t.SetColumnFilter(form.Get("column"), form.Get("q"))
		case "page":
			n, _ := strconv.Atoi(form.Get("page"))
			t.SetPage(n - 1)
		case "next":
			t.NextPage(items)
		case "prev":
			t.PrevPage(items)
		case "page-size":
			n, _ := strconv.Atoi(form.Get("size"))
			t.SetPageSize(n)
		case "view":
			t.SetView(table.ViewMode(form.Get("mode")))
		case "toggle-view":
			t.ToggleView()
		case "select":
			t.ToggleRow(form.Get("id"))
		case "select-page":
			t.TogglePage(items)
		case "clear":
			t.ClearSelection()
		case "column":
			t.SetColumnVisible(form.Get("column"), form.Get("visible") == "true")
		case "reset":
			t.Reset()
		case "save-config":
			toast = &notify.Toast{Level: notify.Success, Title: "Table settings saved"}
			if err := t.SaveConfig(s.configs); err != nil {
				toast = &notify.Toast{Level: notify.Error, Title: "Saving table settings failed", Message: err.Error()}
			}
		case "load-config":
			found, err := t.LoadConfig(s.configs)
			switch {
			case err != nil:
				toast = &notify.Toast{Level: notify.Error, Title: "Loading table settings failed", Message: err.Error()}
			case !found:
				toast = &notify.Toast{Level: notify.Info, Title: "No saved table settings"}
			default:
				toast = &notify.Toast{Level: notify.Success, Title: "Table settings loaded"}
			}
		default:
			badReq = fmt.Errorf("unknown action %q", action)
		}
	})

	if badReq != nil {
		http.Error(w, badReq.Error(), http.StatusBadRequest)
		return
	}
	if toast != nil {
		s.hub.Notify(*toast)
	}
	s.back(w, r, p)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, h, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	obj, err := resource.ParseManifest([]byte(r.PostForm.Get("manifest")))
	if err != nil {
		s.hub.Notify(notify.Toast{Level: notify.Error, Title: "Invalid manifest", Message: err.Error()})
		s.back(w, r, p)
		return
	}
	// Backend outcomes are reported by the hook's own toasts.
	if err := h.Create(r.Context(), obj); err != nil {
		s.reportRejected(err)
	}
	s.back(w, r, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, h, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	items, err := s.items(r.Context(), h)
	if err != nil {
		s.hub.Notify(notify.Toast{Level: notify.Error, Title: "Failed to load " + p.Title, Message: errorText(err)})
		s.back(w, r, p)
		return
	}

	var targets []resource.Target
	if ids := r.PostForm["id"]; len(ids) > 0 {
		want := map[string]bool{}
		for _, id := range ids {
			want[id] = true
		}
		for _, it := range items {
			if want[resource.RowID(it)] {
				targets = append(targets, resource.TargetOf(it))
			}
		}
	} else {
		s.state.with(p, func(t *table.Table[pages.Record]) {
			for _, it := range t.SelectedItems(items) {
				targets = append(targets, resource.TargetOf(it))
			}
		})
	}
	if len(targets) == 0 {
		s.hub.Notify(notify.Toast{Level: notify.Info, Title: "Nothing selected"})
		s.back(w, r, p)
		return
	}

	if err := h.Delete(r.Context(), targets...); err != nil {
		s.reportRejected(err)
	}
	s.state.with(p, func(t *table.Table[pages.Record]) { t.ClearSelection() })
	s.back(w, r, p)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	p, h, ok := s.resolve(w, r)
	if !ok {
		return
	}
	target := resource.Target{Namespace: r.URL.Query().Get("namespace"), Name: r.URL.Query().Get("name")}
	if target.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	data := detailData{
		layoutData: s.layout(p.Title+": "+target.String(), p.Kind),
		Slug:       p.Slug(),
		Namespace:  target.Namespace,
		Name:       target.Name,
		CanUpdate:  h.CanUpdate(),
	}

	obj, err := s.lookup(r.Context(), h, target)
	status := http.StatusOK
	switch {
	case err != nil:
		data.Error = errorText(err)
		status = http.StatusBadGateway
		if restclient.IsStatus(err, http.StatusNotFound) {
			status = http.StatusNotFound
		}
	case obj == nil:
		data.Error = "Not found"
		status = http.StatusNotFound
	default:
		if data.YAML, err = resource.ManifestYAML(obj); err != nil {
			data.Error = err.Error()
		}
	}
	s.render(w, status, "detail.html", data)
}

// lookup fetches the details when the kind has a details endpoint and reads
// the record from the list otherwise.
func (s *Server) lookup(ctx context.Context, h *resource.Hooks, target resource.Target) (*unstructured.Unstructured, error) {
	if h.CanGet() {
		return h.Get(ctx, target)
	}
	items, err := s.items(ctx, h)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if resource.TargetOf(items[i]) == target {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	p, h, ok := s.resolve(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	obj, err := resource.ParseManifest([]byte(r.PostForm.Get("manifest")))
	if err != nil {
		s.hub.Notify(notify.Toast{Level: notify.Error, Title: "Invalid manifest", Message: err.Error()})
		s.back(w, r, p)
		return
	}
	if err := h.Update(r.Context(), obj); err != nil {
		s.reportRejected(err)
	}

	q := url.Values{}
	q.Set("name", obj.GetName())
	if ns := obj.GetNamespace(); ns != "" {
		q.Set("namespace", ns)
	}
	http.Redirect(w, r, "/ui/"+p.Slug()+"/detail?"+q.Encode(), http.StatusSeeOther)
}

// reportRejected toasts errors raised before any request was sent. Errors
// from the backend already have their toast.
func (s *Server) reportRejected(err error) {
	switch {
	case errors.Is(err, resource.ErrInvalidManifest):
		s.hub.Notify(notify.Toast{Level: notify.Error, Title: "Invalid manifest", Message: err.Error()})
	case errors.Is(err, resource.ErrUnsupported):
		s.hub.Notify(notify.Toast{Level: notify.Error, Title: "Not supported", Message: err.Error()})
	default:
		log.WithError(err).Debug("mutation failed")
	}
}

func (s *Server) back(w http.ResponseWriter, r *http.Request, p pages.Page) {
	http.Redirect(w, r, "/ui/"+p.Slug(), http.StatusSeeOther)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	token, _ := s.session.Token()
	data := loginData{layoutData: s.layout("Sign in", "")}
	data.LoggedIn = token != ""
	s.render(w, http.StatusOK, "login.html", data)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		data := loginData{layoutData: s.layout("Sign in", ""), Error: "Token is required"}
		data.LoggedIn = false
		s.render(w, http.StatusBadRequest, "login.html", data)
		return
	}
	if err := s.session.SetToken(token); err != nil {
		log.WithError(err).Error("store session token")
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	s.invalidateAll()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Clear(); err != nil {
		log.WithError(err).Error("clear session token")
	}
	s.invalidateAll()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// invalidateAll drops every cached list, since lists depend on who asks.
func (s *Server) invalidateAll() {
	for _, k := range resource.Kinds() {
		s.factory.Cache().Invalidate(k)
	}
}

func errorText(err error) string {
	if restclient.IsStatus(err, http.StatusUnauthorized) {
		return "Unauthorized: sign in with a valid token"
	}
	return err.Error()
}
