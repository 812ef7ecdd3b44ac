package role

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// ChannelPort is the slice of the channel component the role service needs.
type ChannelPort interface {
	GetByID(ctx context.Context, id int64) (*channel.Channel, error)
	GetDefaultChannel(ctx context.Context) (*channel.Channel, error)
	AssignToChannel(ctx context.Context, roleID, channelID int64) error
}

// AuthorizerPort answers channel-scoped permission queries for the acting
// user.
type AuthorizerPort interface {
	UserHasPermissionOnChannel(ctx context.Context, userID, channelID int64, p permission.Permission) (bool, error)
}

// CreateRoleInput describes a new role. ChannelID zero means the request
// context's active channel.
type CreateRoleInput struct {
	Code        string
	Description string
	Permissions []permission.Permission
	ChannelID   int64
}

// UpdateRoleInput is a partial patch; nil fields are left untouched.
type UpdateRoleInput struct {
	ID          int64
	Code        *string
	Description *string
	Permissions []permission.Permission
}

// Service handles role lifecycle business logic.
type Service struct {
	repo     RepositoryPort
	channels ChannelPort
	authz    AuthorizerPort
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, channels ChannelPort, authz AuthorizerPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, channels: channels, authz: authz, logger: logger}
}

// List returns roles matching the filters plus the total count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Role, int, error) {
	return s.repo.List(ctx, filters)
}

// GetByID returns one role with channels populated.
func (s *Service) GetByID(ctx context.Context, id int64) (*Role, error) {
	return s.repo.FindByID(ctx, id)
}

// Create validates, authorizes and persists a new role bound to a single
// channel. All reads and checks complete before the first write.
func (s *Service) Create(ctx context.Context, input CreateRoleInput) (*Role, error) {
	if err := permission.Validate(input.Permissions); err != nil {
		return nil, err
	}

	target, err := s.resolveTargetChannel(ctx, input.ChannelID)
	if err != nil {
		return nil, err
	}

	rc := shared.RequestFromContext(ctx)
	if !rc.Authenticated() {
		return nil, &shared.ForbiddenError{Reason: "no active user"}
	}
	allowed, err := s.authz.UserHasPermissionOnChannel(ctx, rc.ActiveUserID, target.ID, permission.CreateAdministrator)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &shared.ForbiddenError{Reason: "missing CreateAdministrator on target channel"}
	}

	created, err := s.repo.Save(ctx, &Role{
		Code:        input.Code,
		Description: input.Description,
		Permissions: permission.Normalize(input.Permissions),
		Channels:    []channel.Channel{*target},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role created",
		slog.Int64("role_id", created.ID),
		slog.String("code", created.Code),
		slog.Int64("channel_id", target.ID))
	return created, nil
}

// Update applies a partial patch to a custom role and returns the
// canonical stored value. System roles are immutable via this path.
func (s *Service) Update(ctx context.Context, input UpdateRoleInput) (*Role, error) {
	if input.Permissions != nil {
		if err := permission.Validate(input.Permissions); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if existing.Kind() == KindSystem {
		return nil, &shared.InternalError{
			Detail: fmt.Sprintf("cannot modify system role %q", existing.Code),
		}
	}

	if input.Code != nil {
		existing.Code = *input.Code
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}
	if input.Permissions != nil {
		existing.Permissions = permission.Normalize(input.Permissions)
	}

	if _, err := s.repo.Save(ctx, existing); err != nil {
		return nil, err
	}
	// Re-read so the caller sees store-side defaulting and populated
	// relations rather than the patched in-memory value.
	return s.repo.FindByID(ctx, input.ID)
}

// AssignRoleToChannel adds the channel to the role's channel set.
func (s *Service) AssignRoleToChannel(ctx context.Context, roleID, channelID int64) error {
	return s.channels.AssignToChannel(ctx, roleID, channelID)
}

func (s *Service) resolveTargetChannel(ctx context.Context, channelID int64) (*channel.Channel, error) {
	if channelID != 0 {
		return s.channels.GetByID(ctx, channelID)
	}
	rc := shared.RequestFromContext(ctx)
	if rc == nil || rc.ActiveChannelID == 0 {
		return nil, &shared.NotFoundError{Entity: "channel", ID: "active"}
	}
	ch, err := s.channels.GetByID(ctx, rc.ActiveChannelID)
	if err != nil {
		return nil, fmt.Errorf("resolve active channel %s: %w", strconv.FormatInt(rc.ActiveChannelID, 10), err)
	}
	return ch, nil
}
