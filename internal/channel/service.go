package channel

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for channels.
type RepositoryPort interface {
	FindByID(ctx context.Context, id int64) (*Channel, error)
	FindByCode(ctx context.Context, code string) (*Channel, error)
	FindByToken(ctx context.Context, token string) (*Channel, error)
	FindDefault(ctx context.Context) (*Channel, error)
	Save(ctx context.Context, ch *Channel) (*Channel, error)
	AssignRole(ctx context.Context, roleID, channelID int64) error
}

// Service handles channel business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetByID returns the channel with the given id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Channel, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByToken returns the channel matching an access token.
func (s *Service) GetByToken(ctx context.Context, token string) (*Channel, error) {
	return s.repo.FindByToken(ctx, token)
}

// GetDefaultChannel returns the installation's default channel. It always
// succeeds after system init has created one.
func (s *Service) GetDefaultChannel(ctx context.Context) (*Channel, error) {
	return s.repo.FindDefault(ctx)
}

// AssignToChannel adds the channel to the role's channel set. Fails with a
// NotFoundError if either side does not exist.
func (s *Service) AssignToChannel(ctx context.Context, roleID, channelID int64) error {
	return s.repo.AssignRole(ctx, roleID, channelID)
}

// Create registers a new channel with a fresh access token.
func (s *Service) Create(ctx context.Context, code string, isDefault bool) (*Channel, error) {
	return s.repo.Save(ctx, &Channel{
		Code:      code,
		Token:     uuid.NewString(),
		IsDefault: isDefault,
	})
}
