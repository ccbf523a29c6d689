package tokens

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the payload of a signed access token. The token is
// self-contained: everything downstream handlers need about the
// principal travels in it.
type AccessClaims struct {
	Username string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// EmailClaims is the payload of an email-confirmation token. It is
// signed with its own key and carries nothing but the user id.
type EmailClaims struct {
	jwt.RegisteredClaims
}
