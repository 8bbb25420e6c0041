// Package auth provides bcrypt API-key hashing and JWT generation/parsing
// for the gateway. Leaf package with no domain dependencies, used by
// internal/api/middleware and the token subcommand.
package auth

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BCryptCost is the bcrypt work factor for stored API keys.
const BCryptCost = 12

// DefaultTokenExpiry is the default token lifetime in hours when
// ORRERY_TOKEN_EXPIRY is not set.
const DefaultTokenExpiry = 24

const (
	envJWTSecret   = "ORRERY_JWT_SECRET"
	envTokenExpiry = "ORRERY_TOKEN_EXPIRY"
)

// SecretConfigured reports whether a signing secret is present in the
// environment. The gateway only enforces auth when this is true.
func SecretConfigured() bool {
	return os.Getenv(envJWTSecret) != ""
}

// getJWTSecret reads ORRERY_JWT_SECRET. Panics when unset: token
// generation or parsing without a secret is a configuration error,
// and callers gate on SecretConfigured first.
func getJWTSecret() []byte {
	secret := os.Getenv(envJWTSecret)
	if secret == "" {
		panic(envJWTSecret + " environment variable not set, cannot initialize auth")
	}
	return []byte(secret)
}

// parseTokenExpiry parses an expiry string (hours) into a Duration.
// getTokenExpiry is the env-reading wrapper.
// Falls back to DefaultTokenExpiry on empty or invalid input.
func parseTokenExpiry(expiryStr string) time.Duration {
	if expiryStr == "" {
		return time.Duration(DefaultTokenExpiry) * time.Hour
	}

	hours, err := strconv.Atoi(expiryStr)
	if err != nil {
		return time.Duration(DefaultTokenExpiry) * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

func getTokenExpiry() time.Duration {
	return parseTokenExpiry(os.Getenv(envTokenExpiry))
}

// HashAPIKey hashes a plaintext API key with bcrypt for storage.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey checks a plaintext API key against a bcrypt hash.
// Returns false (not an error) for malformed hashes so responses never
// leak hash format details.
func VerifyAPIKey(hash, key string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// Claims are the JWT claims used by the gateway. ClientID identifies
// the calling program (cli, dashboard, ...).
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed HS256 token for the given client.
func GenerateToken(clientID string) (string, error) {
	now := time.Now()
	expiresAt := now.Add(getTokenExpiry())

	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(getJWTSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ParseToken validates a token string and extracts its claims.
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// HMAC only; reject algorithm substitution
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTSecret(), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims or signature")
	}

	return claims, nil
}
