package auth

import (
	"time"

	"github.com/marisol-pos/marisol/internal/shared"
)

// User is an API account able to operate the point of sale.
type User struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
	TokenHash string      `json:"-"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}
