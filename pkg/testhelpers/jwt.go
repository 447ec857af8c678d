// Package testhelpers provides fixtures for testing ekaya-query components.
package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestAudience is the audience written into generated test tokens.
const TestAudience = "ekaya-query"

func testClaims(sub string, roles []string) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub": sub,
		"aud": TestAudience,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	return claims
}

// GenerateTestJWT creates an HS256 token signed with secret, carrying the
// subject and roles.
func GenerateTestJWT(secret []byte, sub string, roles ...string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims(sub, roles))
	signed, err := token.SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// GenerateUnsignedTestJWT creates an alg=none token for use when verification
// is disabled.
func GenerateUnsignedTestJWT(sub string, roles ...string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, testClaims(sub, roles))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		panic(err)
	}
	return signed
}

// GenerateTestJWTWithBearer returns a signed token with the "Bearer " prefix.
func GenerateTestJWTWithBearer(secret []byte, sub string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(secret, sub, roles...)
}
