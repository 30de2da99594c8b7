package users

import "time"

// User is a platform account. Login is passwordless: identity is proven by a
// confirmation code delivered to the email or phone on record, or by a
// federated identity provider, so a user carries no credential material.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
