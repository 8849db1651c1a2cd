package session

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/securecookie"
)

const cookieName = "pushrelay_session"

// Manager signs and reads the identity cookie. Only the account identity
// travels in the cookie; access tokens stay in the token store and are
// looked up per request.
type Manager struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewManager derives signing keys from the configured secret. secureOnly
// marks cookies HTTPS-only and should be set everywhere except local
// development.
func NewManager(secretKey string, secureOnly bool) *Manager {
	hashKey := sha256.Sum256([]byte(secretKey))
	blockKey := sha256.Sum256([]byte("pushrelay.block." + secretKey))
	return &Manager{
		codec:  securecookie.New(hashKey[:], blockKey[:]),
		secure: secureOnly,
	}
}

// SetIdentity writes the signed identity cookie.
func (m *Manager) SetIdentity(w http.ResponseWriter, identity string) error {
	encoded, err := m.codec.Encode(cookieName, identity)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Identity reads the signed identity cookie. A missing or tampered cookie
// reports no identity rather than an error.
func (m *Manager) Identity(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	var identity string
	if err := m.codec.Decode(cookieName, cookie.Value, &identity); err != nil {
		return "", false
	}
	return identity, identity != ""
}
