package domain

import "time"

// User is the public-facing shape of an account. The password hash is stored
// alongside it in the repository layer but is never exposed through this
// value — there is deliberately no field for it here.
type User struct {
	ID        UserID    `json:"id"`
	Username  Username  `json:"username"`
	Email     Email     `json:"email"`
	Role      Role      `json:"role"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
