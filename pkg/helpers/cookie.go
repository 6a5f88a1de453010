package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultTokenCookie is the cookie that carries the session token.
const DefaultTokenCookie = "token"

type Manager struct {
	Name   string
	Domain string
	Secure bool
}

func NewCookie(name, domain string, secure bool) *Manager {
	if name == "" {
		name = DefaultTokenCookie
	}
	return &Manager{Name: name, Domain: domain, Secure: secure}
}

// SetToken writes the session token as an HttpOnly cookie that lives as long
// as the token itself.
func (m *Manager) SetToken(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(m.Name, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

// Clear expires the token cookie. Sign-out is client-side only: a copied
// token stays valid until it expires.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(m.Name, "", -1, "/", m.Domain, m.Secure, true)
}

// Token returns the token carried by the request, or "" when absent.
func (m *Manager) Token(c *gin.Context) string {
	v, err := c.Cookie(m.Name)
	if err != nil {
		return ""
	}
	return v
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
