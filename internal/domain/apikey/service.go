// Package apikey manages gateway API keys. A key is "<id>.<secret>":
// the id half is stored as the lookup column, the secret half only as a
// bcrypt hash, so a leaked database cannot be replayed against the
// gateway.
package apikey

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/orrery-labs/orrery/pkg/auth"
	"github.com/orrery-labs/orrery/pkg/uuid"
)

// ErrInvalidKey is returned when a key is malformed, unknown, or its
// secret does not match the stored hash.
var ErrInvalidKey = errors.New("invalid api key")

// secretBytes is the entropy of the secret half (hex-encoded on the wire).
const secretBytes = 24

// Service creates and verifies API keys against the api_key table.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create mints a key for the named client and returns its plaintext form.
// The plaintext is shown exactly once; only the secret's bcrypt hash is
// stored.
func (s *Service) Create(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("apikey create: name is required")
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("apikey create: read random: %w", err)
	}
	secret := hex.EncodeToString(buf)

	hash, err := pkgauth.HashAPIKey(secret)
	if err != nil {
		return "", fmt.Errorf("apikey create: %w", err)
	}

	id := uuid.NewV7().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_key (id, name, key_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, name, hash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("apikey create %s: %w", name, err)
	}

	return id + "." + secret, nil
}

// Verify checks a plaintext key and returns the owning client name.
// All failure modes collapse into ErrInvalidKey.
func (s *Service) Verify(ctx context.Context, key string) (string, error) {
	id, secret, ok := strings.Cut(key, ".")
	if !ok || id == "" || secret == "" {
		return "", ErrInvalidKey
	}

	var name, hash string
	row := s.db.QueryRowContext(ctx,
		`SELECT name, key_hash FROM api_key WHERE id = ?`, id)
	if err := row.Scan(&name, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidKey
		}
		return "", fmt.Errorf("apikey verify: %w", err)
	}

	if !pkgauth.VerifyAPIKey(hash, secret) {
		return "", ErrInvalidKey
	}
	return name, nil
}

// Count returns the number of stored keys. The gateway uses it to decide
// whether to enforce auth at startup.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_key`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("apikey count: %w", err)
	}
	return n, nil
}
