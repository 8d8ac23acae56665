package model

import (
	"strings"
	"time"
)

// User is a customer account.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UserCreate is the request body for creating a user.
type UserCreate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UserUpdate is a partial update of a user.
type UserUpdate struct {
	Username Optional[string] `json:"username,omitzero"`
	Email    Optional[string] `json:"email,omitzero"`
	IsActive Optional[bool]   `json:"is_active,omitzero"`
}

// Build returns the user described by in with defaults applied.
func (in UserCreate) Build() User {
	u := User{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		IsActive: true,
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	return u
}

// Validate checks only the fields present in the update.
func (p UserUpdate) Validate() error {
	var ve ValidationError
	if v, ok := p.Username.Get(); ok {
		ve.Add("username", checkUsername(v))
	}
	if v, ok := p.Email.Get(); ok {
		ve.Add("email", checkEmail(v))
	}
	return ve.Err()
}

// Apply merges the set fields of p into u.
func (p UserUpdate) Apply(u *User) {
	if v, ok := p.Username.Get(); ok {
		u.Username = strings.TrimSpace(v)
	}
	if v, ok := p.Email.Get(); ok {
		u.Email = strings.TrimSpace(v)
	}
	if v, ok := p.IsActive.Get(); ok {
		u.IsActive = v
	}
}

// ValidateUser checks a User for constraint violations.
func ValidateUser(u *User) error {
	var ve ValidationError
	ve.Add("username", checkUsername(u.Username))
	ve.Add("email", checkEmail(u.Email))
	return ve.Err()
}

func checkUsername(s string) string {
	if len([]rune(strings.TrimSpace(s))) < 3 {
		return "must be at least 3 characters"
	}
	return checkText(s, true, 50)
}
