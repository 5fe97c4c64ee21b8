package backend

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"rbacview/internal/store"
)

var (
	adminUserResource = schema.GroupResource{Group: "rbacview", Resource: "adminusers"}
	adminUserKind     = schema.GroupKind{Group: "rbacview", Kind: "AdminUser"}

	// AdminRoles are the dashboard roles an admin user can hold.
	AdminRoles = []string{"admin", "editor", "viewer"}
)

type AdminUser struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec AdminUserSpec `json:"spec"`
}

type AdminUserSpec struct {
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	Disabled bool   `json:"disabled,omitempty"`
}

// AdminUsers is the registry of dashboard operators, stored in bbolt by name.
type AdminUsers struct {
	mu     sync.Mutex
	bucket *store.Bucket
}

func NewAdminUsers(st *store.Store) *AdminUsers {
	return &AdminUsers{bucket: st.Bucket("admin_users")}
}

func (a *AdminUsers) List() ([]AdminUser, error) {
	out := []AdminUser{}
	err := a.bucket.Each(func(_ string, value []byte) error {
		var u AdminUser
		if err := json.Unmarshal(value, &u); err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (a *AdminUsers) get(name string) (AdminUser, bool, error) {
	b, ok, err := a.bucket.Load(name)
	if err != nil || !ok {
		return AdminUser{}, ok, err
	}
	var u AdminUser
	if err := json.Unmarshal(b, &u); err != nil {
		return AdminUser{}, false, err
	}
	return u, true, nil
}

func (a *AdminUsers) put(u AdminUser) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return a.bucket.Save(u.Name, b)
}

func (a *AdminUsers) Create(u AdminUser) (AdminUser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if u.Spec.Role == "" {
		u.Spec.Role = "viewer"
	}
	if err := validateAdminUser(u); err != nil {
		return AdminUser{}, err
	}
	if _, exists, err := a.get(u.Name); err != nil {
		return AdminUser{}, err
	} else if exists {
		return AdminUser{}, apierrors.NewAlreadyExists(adminUserResource, u.Name)
	}

	id := uuid.NewString()
	u.TypeMeta = metav1.TypeMeta{Kind: "AdminUser", APIVersion: "rbacview/v1"}
	u.ObjectMeta = metav1.ObjectMeta{
		Name:              u.Name,
		UID:               types.UID(id),
		CreationTimestamp: metav1.NewTime(time.Now()),
	}
	if err := a.put(u); err != nil {
		return AdminUser{}, err
	}
	return u, nil
}

// Update replaces the spec of an existing user. Name and metadata are kept.
func (a *AdminUsers) Update(name string, u AdminUser) (AdminUser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, exists, err := a.get(name)
	if err != nil {
		return AdminUser{}, err
	}
	if !exists {
		return AdminUser{}, apierrors.NewNotFound(adminUserResource, name)
	}
	if u.Name != "" && u.Name != name {
		return AdminUser{}, apierrors.NewBadRequest("metadata.name does not match the name parameter")
	}
	if u.Spec.Role == "" {
		u.Spec.Role = cur.Spec.Role
	}
	cur.Spec = u.Spec
	if err := validateAdminUser(cur); err != nil {
		return AdminUser{}, err
	}
	if err := a.put(cur); err != nil {
		return AdminUser{}, err
	}
	return cur, nil
}

func (a *AdminUsers) Delete(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists, err := a.get(name); err != nil {
		return err
	} else if !exists {
		return apierrors.NewNotFound(adminUserResource, name)
	}
	return a.bucket.Delete(name)
}

func validateAdminUser(u AdminUser) error {
	var errs field.ErrorList
	if u.Name == "" {
		errs = append(errs, field.Required(field.NewPath("metadata", "name"), ""))
	} else {
		for _, msg := range validation.IsDNS1123Subdomain(u.Name) {
			errs = append(errs, field.Invalid(field.NewPath("metadata", "name"), u.Name, msg))
		}
	}
	spec := field.NewPath("spec")
	if !slices.Contains(AdminRoles, u.Spec.Role) {
		errs = append(errs, field.NotSupported(spec.Child("role"), u.Spec.Role, AdminRoles))
	}
	if u.Spec.Email != "" {
		if _, err := mail.ParseAddress(u.Spec.Email); err != nil {
			errs = append(errs, field.Invalid(spec.Child("email"), u.Spec.Email, err.Error()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apierrors.NewInvalid(adminUserKind, u.Name, errs)
}

func (s *Server) adminRoutes(ar chi.Router) {
	ar.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		users, err := s.admins.List()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
	})

	ar.Post("/users", func(w http.ResponseWriter, r *http.Request) {
		var u AdminUser
		if err := decodeBody(r, &u); err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		out, err := s.admins.Create(u)
		s.recordAdmin(r, "create", u.Name, http.StatusCreated, err)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, out)
	})

	ar.Put("/users", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			badRequest(w, "name is required")
			return
		}
		var u AdminUser
		if err := decodeBody(r, &u); err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		out, err := s.admins.Update(name, u)
		s.recordAdmin(r, "update", name, http.StatusOK, err)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	ar.Delete("/users", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			badRequest(w, "name is required")
			return
		}
		err := s.admins.Delete(name)
		s.recordAdmin(r, "delete", name, http.StatusOK, err)
		if err != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
	})
}

func (s *Server) recordAdmin(r *http.Request, action, name string, status int, err error) {
	e := AuditEntry{
		Action:     action,
		Resource:   "adminusers",
		TargetName: name,
		Outcome:    OutcomeSuccess,
		Code:       status,
		RemoteAddr: r.RemoteAddr,
	}
	if err != nil {
		e.Outcome = OutcomeFailure
		e.Code = statusFor(err)
		e.Error = err.Error()
	}
	s.recordAudit(e)
}
