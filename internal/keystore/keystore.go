package keystore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"docreader/internal/models"
)

// ErrKeyNotFound is returned when removing a token that was never added.
var ErrKeyNotFound = errors.New("api key not found")

// Store is the set of accepted bearer tokens. Requests only read membership;
// mutations come from the admin surface.
type Store interface {
	IsValid(ctx context.Context, token string) (bool, error)
	Add(ctx context.Context, token, label string) (*models.APIKeyRecord, error)
	Remove(ctx context.Context, token string) error
	List(ctx context.Context) ([]models.APIKeyRecord, error)
}

// SQLStore keeps the accepted token set in an api_keys table with an
// in-memory cache in front. Reads hit the cache; Add/Remove write through
// to the database and update the cache under the same lock, so concurrent
// readers never observe a half-applied mutation.
type SQLStore struct {
	db *sql.DB

	mu     sync.RWMutex
	tokens map[string]struct{}
}

// NewSQLStore loads the current token set and returns a ready store.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, tokens: make(map[string]struct{})}
	rows, err := db.Query(`SELECT token FROM api_keys`)
	if err != nil {
		return nil, fmt.Errorf("load api keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		s.tokens[token] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return s, nil
}

// IsValid reports membership from the in-memory set.
func (s *SQLStore) IsValid(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	s.mu.RLock()
	_, ok := s.tokens[token]
	s.mu.RUnlock()
	return ok, nil
}

// Add persists a new token and makes it visible to readers.
func (s *SQLStore) Add(ctx context.Context, token, label string) (*models.APIKeyRecord, error) {
	if token == "" {
		return nil, errors.New("token required")
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (token, label, created_at) VALUES (?, ?, ?)`,
		token, label, now,
	); err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	s.tokens[token] = struct{}{}
	return &models.APIKeyRecord{Token: token, Label: label, CreatedAt: now}, nil
}

// Remove deletes the token from storage and the cache.
func (s *SQLStore) Remove(ctx context.Context, token string) error {
	if token == "" {
		return ErrKeyNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrKeyNotFound
	}
	delete(s.tokens, token)
	return nil
}

// List returns all key records from storage, newest first.
func (s *SQLStore) List(ctx context.Context) ([]models.APIKeyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, label, created_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	var records []models.APIKeyRecord
	for rows.Next() {
		var rec models.APIKeyRecord
		if err := rows.Scan(&rec.Token, &rec.Label, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GenerateToken mints a random 64-character hex token.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
