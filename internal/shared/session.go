package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the presented token has no backing session.
var ErrSessionNotFound = errors.New("session not found")

// SessionManager issues and resolves bearer tokens backed by Redis.
type SessionManager struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type sessionPayload struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, prefix string, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, prefix: prefix, ttl: ttl}
}

// Issue creates a session token for the given user.
func (sm *SessionManager) Issue(ctx context.Context, userID int64, name string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(sessionPayload{UserID: userID, Name: name})
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.key(token), payload, sm.ttl).Err(); err != nil {
		return "", fmt.Errorf("shared: store session: %w", err)
	}
	return token, nil
}

// Resolve returns the actor bound to a token, refreshing its TTL.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrSessionNotFound
	}
	raw, err := sm.client.Get(ctx, sm.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Actor{}, ErrSessionNotFound
		}
		return Actor{}, fmt.Errorf("shared: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Actor{}, err
	}
	_ = sm.client.Expire(ctx, sm.key(token), sm.ttl).Err()
	return Actor{UserID: stored.UserID, Name: stored.Name}, nil
}

// Revoke removes a session token.
func (sm *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := sm.client.Del(ctx, sm.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (sm *SessionManager) key(token string) string {
	return sm.prefix + ":" + token
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
