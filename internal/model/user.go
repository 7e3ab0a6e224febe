package model

import "time"

// User represents an account as stored in the `users` table.  Bookings are
// scoped to the user that created them and the email address receives the
// booking notifications.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name used in notifications.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
