package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the portal roles recognised by this service.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims is the access token payload issued by the portal's auth service.
// Student accounts carry the student_id they act for.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	FullName  string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Pagination describes a page of list results.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
