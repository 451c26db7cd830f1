// internal/domain/user/entity.go
package user

import "time"

// User carries the minimum the login flow needs: an identity to own sessions
// and a credential to verify. Profile data lives elsewhere.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
