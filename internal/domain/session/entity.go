// internal/domain/session/entity.go
package session

import "time"

// Status is the lifecycle state of a login session. The transition is
// one-way: ACTIVE -> REVOKED, never back.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRevoked Status = "REVOKED"
)

// RequestMetadata is the request snapshot captured at login. It is kept for
// audit and forensics only and must never feed an authorization decision.
type RequestMetadata struct {
	Host           string `json:"host,omitempty"`
	IP             string `json:"ip,omitempty"`
	Protocol       string `json:"protocol,omitempty"`
	OriginalURL    string `json:"original_url,omitempty"`
	Method         string `json:"method,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	ForwardedFor   string `json:"forwarded_for,omitempty"`
	ForwardedHost  string `json:"forwarded_host,omitempty"`
	ForwardedProto string `json:"forwarded_proto,omitempty"`
}

// Session is one issued refresh-token lifetime for a user.
//
// ExpiredAt is fixed at creation (no sliding expiration). RevokeAt is set
// exactly once, when Status flips to REVOKED.
type Session struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	RequestMetadata RequestMetadata `json:"request_metadata"`
	Status          Status          `json:"status"`
	ExpiredAt       time.Time       `json:"expired_at"`
	RevokeAt        *time.Time      `json:"revoke_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsRevoked reports whether the session has been terminated.
func (s *Session) IsRevoked() bool {
	return s.Status == StatusRevoked
}

// IsExpired reports whether the session's fixed lifetime has elapsed.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiredAt)
}

// CacheValue is the payload written to the fast-path cache. Its mere presence
// under the session key is the proof of validity on every refresh request.
type CacheValue struct {
	User string `json:"user"`
}

// JobPayload is the delayed-queue payload delivered when a scheduled expiry
// fires.
type JobPayload struct {
	Session string `json:"session"`
}
