package common

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const SessionCookie = "sid"

func setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Domain:   strings.TrimPrefix(strings.Split(r.Host, ":")[0], "."),
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
		HttpOnly: true,
		MaxAge:   60 * 60 * 24 * 30,
		Path:     "/",
	})
}

// HandleSessionCookie returns the visitor id from the sid cookie, issuing a
// new one when it is missing or not a valid id.
func HandleSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	sessionID := uuid.NewString()
	setSessionCookie(w, r, sessionID)
	return sessionID
}
