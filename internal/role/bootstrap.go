package role

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// Bootstrapper provisions the system roles at startup. EnsureSystemRoles
// is idempotent and safe to run from multiple processes at once: a lost
// create race on the code uniqueness constraint is treated as "already
// exists".
type Bootstrapper struct {
	repo     RepositoryPort
	channels ChannelPort
	logger   *slog.Logger
}

// NewBootstrapper builds Bootstrapper instance.
func NewBootstrapper(repo RepositoryPort, channels ChannelPort, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{repo: repo, channels: channels, logger: logger}
}

// EnsureSystemRoles makes sure the superadmin and customer roles exist and
// are well formed. Superadmin is ensured first; the order is fixed so
// repeated runs are deterministic.
func (b *Bootstrapper) EnsureSystemRoles(ctx context.Context) error {
	if err := b.ensureSuperAdmin(ctx); err != nil {
		return err
	}
	return b.ensureCustomer(ctx)
}

func (b *Bootstrapper) ensureSuperAdmin(ctx context.Context) error {
	required := permission.AllExceptOwner()

	existing, found, err := b.lookup(ctx, SuperAdminRoleCode)
	if err != nil {
		return err
	}
	if found {
		missing := permission.Missing(existing.Permissions, required)
		if len(missing) == 0 {
			return nil
		}
		// Self-healing is additive: grow the set to cover the catalog,
		// never drop permissions already granted.
		existing.Permissions = append(existing.Permissions, missing...)
		if _, err := b.repo.Save(ctx, existing); err != nil {
			return err
		}
		b.logger.Info("superadmin role healed",
			slog.Int("added_permissions", len(missing)))
		return nil
	}

	return b.createSystemRole(ctx, &Role{
		Code:        SuperAdminRoleCode,
		Description: SuperAdminRoleDescription,
		Permissions: required,
	})
}

func (b *Bootstrapper) ensureCustomer(ctx context.Context) error {
	_, found, err := b.lookup(ctx, CustomerRoleCode)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return b.createSystemRole(ctx, &Role{
		Code:        CustomerRoleCode,
		Description: CustomerRoleDescription,
		Permissions: []permission.Permission{permission.Authenticated},
	})
}

func (b *Bootstrapper) createSystemRole(ctx context.Context, r *Role) error {
	def, err := b.channels.GetDefaultChannel(ctx)
	if err != nil {
		return err
	}
	r.Channels = []channel.Channel{*def}

	if _, err := b.repo.Save(ctx, r); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			// Another process won the create race; the role exists now.
			b.logger.Info("system role created concurrently", slog.String("code", r.Code))
			return nil
		}
		return err
	}
	b.logger.Info("system role created", slog.String("code", r.Code))
	return nil
}

// lookup treats absence as an ordinary outcome rather than an error.
func (b *Bootstrapper) lookup(ctx context.Context, code string) (*Role, bool, error) {
	r, err := b.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return r, true, nil
}
