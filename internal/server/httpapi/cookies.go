package httpapi

import (
	"net/http"

	"github.com/vritti-ai-platforms/api-nexus/internal/config"
)

// refreshCookies reads and writes the httpOnly refresh-token cookie.
type refreshCookies struct {
	cfg config.CookieConfig
}

func (c refreshCookies) read(r *http.Request) string {
	ck, err := r.Cookie(c.cfg.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c refreshCookies) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    token,
		Path:     c.path(),
		Domain:   c.cfg.Domain,
		MaxAge:   int(c.cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

func (c refreshCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.Name,
		Value:    "",
		Path:     c.path(),
		Domain:   c.cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	})
}

func (c refreshCookies) path() string {
	if c.cfg.Path == "" {
		return "/"
	}
	return c.cfg.Path
}
