// Package auth extracts the signed-in identity from an injected session blob.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoUser is returned when a session blob carries no user id.
var ErrNoUser = errors.New("session has no user id")

// Identity is the authenticated owner of cloud rows.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
	ExpiresAt time.Time // zero when the session does not say
}

// Display returns the best human label for the identity.
func (id Identity) Display() string {
	switch {
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	default:
		return id.UserID
	}
}

// Expired reports whether the session carried an expiry that has passed.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

type sessionUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user_metadata"`
}

type session struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   int64        `json:"expires_at"`
	User        *sessionUser `json:"user"`
	// Older clients nest the session one level down.
	CurrentSession *session `json:"currentSession"`
}

// ParseSession decodes an opaque session string as stored by the auth
// provider's client library and returns the identity it belongs to.
func ParseSession(blob string) (Identity, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return Identity{}, errors.New("empty session")
	}
	var s session
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	if s.User == nil && s.CurrentSession != nil {
		s = *s.CurrentSession
	}
	if s.User == nil || s.User.ID == "" {
		return Identity{}, ErrNoUser
	}

	id := Identity{
		UserID:    s.User.ID,
		Email:     s.User.Email,
		Name:      s.User.UserMetadata.FullName,
		AvatarURL: s.User.UserMetadata.AvatarURL,
	}
	if s.ExpiresAt > 0 {
		id.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return id, nil
}

// NewSession builds a minimal session blob for a user, as written by the
// login command.
func NewSession(userID, email string) (string, error) {
	if userID == "" {
		return "", ErrNoUser
	}
	data, err := json.Marshal(session{User: &sessionUser{ID: userID, Email: email}})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SessionKey is the local settings key for a provider project's session.
func SessionKey(projectRef string) string {
	return "sb-" + projectRef + "-auth-token"
}

// IsSessionKey reports whether key has the sb-<ref>-auth-token shape.
func IsSessionKey(key string) bool {
	return strings.HasPrefix(key, "sb-") && strings.HasSuffix(key, "-auth-token") && len(key) > len("sb--auth-token")
}

// FindSessionKey picks the key a session is stored under: the first existing
// key of the right shape, else the key for projectRef.
func FindSessionKey(keys []string, projectRef string) string {
	for _, k := range keys {
		if IsSessionKey(k) {
			return k
		}
	}
	return SessionKey(projectRef)
}
