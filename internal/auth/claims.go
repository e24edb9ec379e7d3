package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Family invariant: FamilyFileID must be present for all activity; every
// actor (parent, child, circle contact) acts inside exactly one family file.
// Circle contacts receive role-scoped tokens; their capabilities are
// further constrained server-side by circle permissions.
type Claims struct {
	jwt.RegisteredClaims

	UserID       string    `json:"user_id"`
	FamilyFileID string    `json:"family_file_id"`
	Role         string    `json:"role"`
	DisplayName  string    `json:"display_name,omitempty"`
	TokenType    TokenType `json:"token_type"`
}
