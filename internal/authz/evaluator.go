// Package authz answers channel-scoped authorization queries.
package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/role"
	"github.com/lumen-commerce/lumen/internal/shared"
	"github.com/lumen-commerce/lumen/internal/user"
)

// projectionTTL bounds staleness of cached permission projections. Role
// edits become visible to authorization within this window.
const projectionTTL = 30 * time.Second

// Evaluator computes effective permissions and answers membership queries.
type Evaluator struct {
	users  user.RepositoryPort
	roles  role.RepositoryPort
	cache  *redis.Client
	group  singleflight.Group
	logger *slog.Logger
}

// NewEvaluator builds an Evaluator. The redis client is optional; nil
// disables projection caching.
func NewEvaluator(users user.RepositoryPort, roles role.RepositoryPort, cache *redis.Client, logger *slog.Logger) *Evaluator {
	return &Evaluator{users: users, roles: roles, cache: cache, logger: logger}
}

// UserHasPermissionOnChannel reports whether some role of the user is
// bound to the channel and carries the permission. It fails with a
// NotFoundError when the user does not exist.
func (e *Evaluator) UserHasPermissionOnChannel(ctx context.Context, userID, channelID int64, p permission.Permission) (bool, error) {
	projection, err := e.projection(ctx, userID)
	if err != nil {
		return false, err
	}
	cp, ok := user.On(projection, channelID)
	if !ok {
		return false, nil
	}
	return permission.Contains(cp.Permissions, p), nil
}

// PermissionsOnChannel returns the user's effective permission set on one
// channel; empty when the channel is not among the user's roles.
func (e *Evaluator) PermissionsOnChannel(ctx context.Context, userID, channelID int64) ([]permission.Permission, error) {
	projection, err := e.projection(ctx, userID)
	if err != nil {
		return nil, err
	}
	cp, _ := user.On(projection, channelID)
	return cp.Permissions, nil
}

// GetSuperAdminRole returns the superadmin role. Its absence means the
// bootstrap invariant is broken and is surfaced as an internal error.
func (e *Evaluator) GetSuperAdminRole(ctx context.Context) (*role.Role, error) {
	return e.systemRole(ctx, role.SuperAdminRoleCode)
}

// GetCustomerRole returns the customer role, with the same invariant as
// GetSuperAdminRole.
func (e *Evaluator) GetCustomerRole(ctx context.Context) (*role.Role, error) {
	return e.systemRole(ctx, role.CustomerRoleCode)
}

func (e *Evaluator) systemRole(ctx context.Context, code string) (*role.Role, error) {
	r, err := e.roles.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &shared.InternalError{Detail: fmt.Sprintf("system role %q missing", code)}
		}
		return nil, err
	}
	return r, nil
}

// projection loads the user's permissions-by-channel projection, serving
// from cache when possible and deduplicating concurrent loads per user.
func (e *Evaluator) projection(ctx context.Context, userID int64) ([]user.ChannelPermissions, error) {
	key := projectionKey(userID)
	if e.cache != nil {
		raw, err := e.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached []user.ChannelPermissions
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			// Unreadable entries are dropped and recomputed.
			e.cache.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) {
			e.logger.Warn("authz cache read", slog.Any("error", err))
		}
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		u, err := e.users.FindWithRoles(ctx, userID)
		if err != nil {
			return nil, err
		}
		projection := user.PermissionsByChannel(u)
		if e.cache != nil {
			if raw, err := json.Marshal(projection); err == nil {
				if err := e.cache.Set(ctx, key, raw, projectionTTL).Err(); err != nil {
					e.logger.Warn("authz cache write", slog.Any("error", err))
				}
			}
		}
		return projection, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]user.ChannelPermissions), nil
}

// Invalidate drops a user's cached projection, e.g. after role membership
// changes.
func (e *Evaluator) Invalidate(ctx context.Context, userID int64) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Del(ctx, projectionKey(userID)).Err(); err != nil {
		e.logger.Warn("authz cache invalidate", slog.Any("error", err))
	}
}

func projectionKey(userID int64) string {
	return fmt.Sprintf("authz:projection:%d", userID)
}
