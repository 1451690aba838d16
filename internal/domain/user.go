package domain

import "time"

// RoleUser is assigned to every self-registered account.
const RoleUser = "USER"

// User is an application account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
