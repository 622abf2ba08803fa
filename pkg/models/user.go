package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Company      string    `json:"company" db:"company"`
	Phone        string    `json:"phone" db:"phone"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserProfile is the console view of a user embedded in auth responses.
type UserProfile struct {
	FullName string `json:"full_name"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		FullName: u.FullName,
		Company:  u.Company,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
