package server

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

const launchCookie = "rbacview_launch"

// launchMiddleware admits browsers holding the launch token. The token
// arrives once as ?token= on the URL printed at startup and is swapped for an
// HttpOnly, SameSite=Strict cookie, so cross-site requests never carry it.
func (s *Server) launchMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" && r.Method == http.MethodGet {
			if !s.validLaunchToken(token) {
				unauthorized(w, r)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     launchCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
			})
			u := *r.URL
			q := u.Query()
			q.Del("token")
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.RequestURI(), http.StatusSeeOther)
			return
		}

		c, err := r.Cookie(launchCookie)
		if err != nil || !s.validLaunchToken(c.Value) {
			unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validLaunchToken(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.launchToken)) == 1
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	http.Error(w, "unauthorized: open the dashboard through the URL printed at startup", http.StatusUnauthorized)
}

// sameOriginMiddleware rejects state-changing requests sent by pages of
// another origin. Origin is checked first, Referer when a browser omits it.
// Requests carrying neither come from non-browser clients.
func sameOriginMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		source := r.Header.Get("Origin")
		if source == "" {
			source = r.Header.Get("Referer")
		}
		if source != "" && !sameHost(source, r.Host) {
			log.WithFields(log.Fields{"origin": source, "path": r.URL.Path}).Warn("cross-origin request rejected")
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sameHost(source, host string) bool {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
