package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Credentials is the caller identity extracted from the platform session
// cookie string.
type Credentials struct {
	// Cookie is the raw cookie header value, replayed on the token fetch.
	Cookie string
	// UID is the account ID from the DedeUserID cookie.
	UID uint64
	// Buvid is the device fingerprint from the buvid3 cookie.
	Buvid string
}

// ErrBadCookie is returned when the cookie string lacks the identity
// cookies the handshake needs.
var ErrBadCookie = errors.New("session: cookie is missing DedeUserID or buvid3")

// ParseCredentials extracts the handshake identity from a raw Cookie
// header value.
func ParseCredentials(cookie string) (Credentials, error) {
	parsed, err := http.ParseCookie(cookie)
	if err != nil {
		return Credentials{}, fmt.Errorf("session: parse cookie: %w", err)
	}

	creds := Credentials{Cookie: cookie}
	for _, c := range parsed {
		switch c.Name {
		case "DedeUserID":
			if _, err := fmt.Sscanf(c.Value, "%d", &creds.UID); err != nil {
				return Credentials{}, fmt.Errorf("session: DedeUserID %q is not numeric", c.Value)
			}
		case "buvid3":
			creds.Buvid = c.Value
		}
	}

	if creds.UID == 0 || creds.Buvid == "" {
		return Credentials{}, ErrBadCookie
	}
	return creds, nil
}
