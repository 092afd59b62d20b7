package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

const permissionCacheTTL = 5 * time.Minute

// Service orchestrates RBAC lookups with a Redis cache of effective
// permissions per user.
type Service struct {
	pool  *pgxpool.Pool
	cache *redis.Client
}

// NewService constructs a Service backed by the provided pool. cache may be
// nil, in which case every lookup hits the database.
func NewService(pool *pgxpool.Pool, cache *redis.Client) *Service {
	return &Service{pool: pool, cache: cache}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	var role Role
	err := s.pool.QueryRow(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2)
RETURNING id, name, description, created_at, updated_at`, name, strings.TrimSpace(description)).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

// AssignRole links a user to a role and invalidates the permission cache.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, userID, roleID)
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RevokeRole removes a role assignment.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1 AND role_id=$2`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, userID)
	return nil
}

// GrantPermission attaches a permission to a role, creating the permission row
// when missing.
func (s *Service) GrantPermission(ctx context.Context, roleID int64, permission string) error {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return errors.New("rbac: permission name required")
	}
	var permID int64
	err := s.pool.QueryRow(ctx, `INSERT INTO permissions (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name RETURNING id`, permission).Scan(&permID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, roleID, permID)
	return err
}

// EffectivePermissions returns the permission names granted to a user through
// any of their roles.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	if cached, ok := s.cachedPermissions(ctx, userID); ok {
		return cached, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT p.name
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = $1
ORDER BY p.name`, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.storePermissions(ctx, userID, perms)
	return perms, nil
}

func (s *Service) cachedPermissions(ctx context.Context, userID int64) ([]string, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, permissionCacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

func (s *Service) storePermissions(ctx context.Context, userID int64, perms []string) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, permissionCacheKey(userID), raw, permissionCacheTTL).Err()
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, permissionCacheKey(userID)).Err()
}

func permissionCacheKey(userID int64) string {
	return fmt.Sprintf("rbac:perms:%d", userID)
}
