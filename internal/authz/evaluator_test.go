package authz

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/role"
	"github.com/lumen-commerce/lumen/internal/shared"
	"github.com/lumen-commerce/lumen/internal/user"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockUserRepo struct {
	users map[int64]*user.User
	loads int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*user.User)}
}

func (m *mockUserRepo) FindWithRoles(ctx context.Context, id int64) (*user.User, error) {
	m.loads++
	u, ok := m.users[id]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "user", ID: fmt.Sprint(id)}
	}
	return u, nil
}

type mockRoleRepo struct {
	byCode map[string]*role.Role
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{byCode: make(map[string]*role.Role)}
}

func (m *mockRoleRepo) List(ctx context.Context, filters role.ListFilters) ([]role.Role, int, error) {
	return nil, 0, nil
}

func (m *mockRoleRepo) FindByID(ctx context.Context, id int64) (*role.Role, error) {
	for _, r := range m.byCode {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &shared.NotFoundError{Entity: "role", ID: fmt.Sprint(id)}
}

func (m *mockRoleRepo) FindByCode(ctx context.Context, code string) (*role.Role, error) {
	r, ok := m.byCode[code]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "role", ID: code}
	}
	return r, nil
}

func (m *mockRoleRepo) Save(ctx context.Context, r *role.Role) (*role.Role, error) {
	m.byCode[r.Code] = r
	return r, nil
}

// ============================================================================
// FIXTURES
// ============================================================================

var (
	defaultCh = channel.Channel{ID: 1, Code: channel.DefaultChannelCode, IsDefault: true}
	ukCh      = channel.Channel{ID: 2, Code: "uk-store"}
)

func seedEditor(users *mockUserRepo, userID int64) {
	users.users[userID] = &user.User{
		ID: userID,
		Roles: []role.Role{{
			ID:          10,
			Code:        "editor",
			Permissions: []permission.Permission{permission.Authenticated, permission.ReadCatalog},
			Channels:    []channel.Channel{defaultCh},
		}},
	}
}

func newTestEvaluator(users *mockUserRepo, roles *mockRoleRepo, cache *redis.Client) *Evaluator {
	return NewEvaluator(users, roles, cache, slog.New(slog.DiscardHandler))
}

// ============================================================================
// TESTS
// ============================================================================

func TestUserHasPermissionOnChannel(t *testing.T) {
	t.Run("true when a role on the channel carries the permission", func(t *testing.T) {
		users := newMockUserRepo()
		seedEditor(users, 7)
		e := newTestEvaluator(users, newMockRoleRepo(), nil)

		ok, err := e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, permission.ReadCatalog)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("false when the permission is outside the channel union", func(t *testing.T) {
		users := newMockUserRepo()
		seedEditor(users, 7)
		e := newTestEvaluator(users, newMockRoleRepo(), nil)

		ok, err := e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, permission.DeleteCatalog)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("false when no role of the user is bound to the channel", func(t *testing.T) {
		users := newMockUserRepo()
		seedEditor(users, 7)
		e := newTestEvaluator(users, newMockRoleRepo(), nil)

		ok, err := e.UserHasPermissionOnChannel(context.Background(), 7, ukCh.ID, permission.ReadCatalog)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unions permissions from multiple roles on the same channel", func(t *testing.T) {
		users := newMockUserRepo()
		users.users[7] = &user.User{
			ID: 7,
			Roles: []role.Role{
				{
					Permissions: []permission.Permission{permission.Authenticated, permission.ReadCatalog},
					Channels:    []channel.Channel{defaultCh},
				},
				{
					Permissions: []permission.Permission{permission.Authenticated, permission.UpdateOrder},
					Channels:    []channel.Channel{defaultCh},
				},
			},
		}
		e := newTestEvaluator(users, newMockRoleRepo(), nil)

		for _, p := range []permission.Permission{permission.ReadCatalog, permission.UpdateOrder} {
			ok, err := e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, p)
			require.NoError(t, err)
			assert.True(t, ok, string(p))
		}
	})

	t.Run("fails with not found for missing user", func(t *testing.T) {
		e := newTestEvaluator(newMockUserRepo(), newMockRoleRepo(), nil)

		_, err := e.UserHasPermissionOnChannel(context.Background(), 404, defaultCh.ID, permission.ReadCatalog)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestProjectionCache(t *testing.T) {
	t.Run("second query serves from cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		users := newMockUserRepo()
		seedEditor(users, 7)
		e := newTestEvaluator(users, newMockRoleRepo(), cache)

		for i := 0; i < 3; i++ {
			ok, err := e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, permission.ReadCatalog)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		assert.Equal(t, 1, users.loads)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		users := newMockUserRepo()
		seedEditor(users, 7)
		e := newTestEvaluator(users, newMockRoleRepo(), cache)

		_, err := e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, permission.ReadCatalog)
		require.NoError(t, err)
		e.Invalidate(context.Background(), 7)
		_, err = e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, permission.ReadCatalog)
		require.NoError(t, err)

		assert.Equal(t, 2, users.loads)
	})

	t.Run("works without a cache client", func(t *testing.T) {
		users := newMockUserRepo()
		seedEditor(users, 7)
		e := newTestEvaluator(users, newMockRoleRepo(), nil)

		for i := 0; i < 2; i++ {
			_, err := e.UserHasPermissionOnChannel(context.Background(), 7, defaultCh.ID, permission.ReadCatalog)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, users.loads)
	})
}

func TestSystemRoleLookups(t *testing.T) {
	t.Run("returns the provisioned roles", func(t *testing.T) {
		roles := newMockRoleRepo()
		roles.byCode[role.SuperAdminRoleCode] = &role.Role{ID: 1, Code: role.SuperAdminRoleCode}
		roles.byCode[role.CustomerRoleCode] = &role.Role{ID: 2, Code: role.CustomerRoleCode}
		e := newTestEvaluator(newMockUserRepo(), roles, nil)

		super, err := e.GetSuperAdminRole(context.Background())
		require.NoError(t, err)
		assert.Equal(t, role.SuperAdminRoleCode, super.Code)

		cust, err := e.GetCustomerRole(context.Background())
		require.NoError(t, err)
		assert.Equal(t, role.CustomerRoleCode, cust.Code)
	})

	t.Run("missing system role is an internal error", func(t *testing.T) {
		e := newTestEvaluator(newMockUserRepo(), newMockRoleRepo(), nil)

		_, err := e.GetSuperAdminRole(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInternal)
		assert.NotErrorIs(t, err, shared.ErrNotFound)

		_, err = e.GetCustomerRole(context.Background())
		assert.ErrorIs(t, err, shared.ErrInternal)
	})
}
