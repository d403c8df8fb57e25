package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Role defines who a principal is
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// JWT claim names carrying the authenticated principal
const (
	ClaimPrincipalID = "principal_id"
	ClaimRole        = "role"
)

// Principal is an admin or a field agent. Neither owns client data; they are
// only referenced from createdBy, collectedBy and recordedBy.
type Principal struct {
	ID         string    `json:"id" db:"id" bson:"_id"`
	Role       Role      `json:"role" db:"role" bson:"role"`
	Username   string    `json:"username" db:"username" bson:"username"`
	Email      string    `json:"email" db:"email" bson:"email"`
	FullName   string    `json:"full_name" db:"full_name" bson:"full_name"`
	FatherName string    `json:"father_name,omitempty" db:"father_name" bson:"father_name,omitempty"`
	Photo      string    `json:"photo,omitempty" db:"photo" bson:"photo,omitempty"`
	Password   string    `json:"-" db:"-" bson:"-"`
	PassHash   string    `json:"-" db:"password_hash" bson:"password_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// AgentRegistration represents data for adding a field agent
type AgentRegistration struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FatherName string `json:"father_name,omitempty"`
	Photo      string `json:"photo,omitempty"`
}

// Login represents login data. Either username or email identifies the principal.
type Login struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expires_at"`
	Principal *Principal `json:"principal"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateRegistration validates agent registration data
func (a *AgentRegistration) ValidateRegistration() error {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Email = strings.TrimSpace(a.Email)
	a.Username = strings.TrimSpace(a.Username)
	a.FatherName = strings.TrimSpace(a.FatherName)

	if a.FullName == "" || a.Email == "" || a.Username == "" || a.Password == "" {
		return errors.New("full_name, email, username and password are required")
	}

	if len(a.Username) < 3 || len(a.Username) > 50 {
		return errors.New("username must be between 3 and 50 characters")
	}

	if !emailPattern.MatchString(a.Email) {
		return errors.New("invalid email format")
	}

	if len(a.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	return nil
}

// ToPrincipal converts AgentRegistration to an agent Principal
func (a *AgentRegistration) ToPrincipal() *Principal {
	return &Principal{
		Role:       RoleAgent,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		FatherName: a.FatherName,
		Photo:      a.Photo,
		Password:   a.Password,
	}
}
