package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the operator role carried in access tokens issued by the
// company identity platform. This service only validates tokens; it never
// issues them.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleScheduler  UserRole = "SCHEDULER"
	RoleSupervisor UserRole = "SUPERVISOR"
	RoleGuard      UserRole = "GUARD"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
