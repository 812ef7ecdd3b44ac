package channel

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-commerce/lumen/internal/shared"
)

type mockRepo struct {
	channels    map[int64]*Channel
	nextID      int64
	assignments [][2]int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{channels: make(map[int64]*Channel), nextID: 1}
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*Channel, error) {
	ch, ok := m.channels[id]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "channel", ID: fmt.Sprint(id)}
	}
	return ch, nil
}

func (m *mockRepo) FindByCode(ctx context.Context, code string) (*Channel, error) {
	for _, ch := range m.channels {
		if ch.Code == code {
			return ch, nil
		}
	}
	return nil, &shared.NotFoundError{Entity: "channel", ID: code}
}

func (m *mockRepo) FindByToken(ctx context.Context, token string) (*Channel, error) {
	for _, ch := range m.channels {
		if ch.Token == token {
			return ch, nil
		}
	}
	return nil, &shared.NotFoundError{Entity: "channel", ID: "by token"}
}

func (m *mockRepo) FindDefault(ctx context.Context) (*Channel, error) {
	for _, ch := range m.channels {
		if ch.IsDefault {
			return ch, nil
		}
	}
	return nil, &shared.NotFoundError{Entity: "channel", ID: "default"}
}

func (m *mockRepo) Save(ctx context.Context, ch *Channel) (*Channel, error) {
	stored := *ch
	if stored.ID == 0 {
		stored.ID = m.nextID
		m.nextID++
	}
	m.channels[stored.ID] = &stored
	return &stored, nil
}

func (m *mockRepo) AssignRole(ctx context.Context, roleID, channelID int64) error {
	if _, ok := m.channels[channelID]; !ok {
		return &shared.NotFoundError{Entity: "channel", ID: fmt.Sprint(channelID)}
	}
	m.assignments = append(m.assignments, [2]int64{roleID, channelID})
	return nil
}

func TestServiceCreate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), "uk-store", false)
	require.NoError(t, err)
	assert.Equal(t, "uk-store", created.Code)
	assert.NotEmpty(t, created.Token, "channel token must be generated")

	second, err := svc.Create(context.Background(), "de-store", false)
	require.NoError(t, err)
	assert.NotEqual(t, created.Token, second.Token)
}

func TestServiceGetDefaultChannel(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_, err := svc.GetDefaultChannel(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Create(context.Background(), DefaultChannelCode, true)
	require.NoError(t, err)

	def, err := svc.GetDefaultChannel(context.Background())
	require.NoError(t, err)
	assert.True(t, def.IsDefault)
}

func TestServiceGetByToken(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), "uk-store", false)
	require.NoError(t, err)

	found, err := svc.GetByToken(context.Background(), created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByToken(context.Background(), "unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceAssignToChannel(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), "uk-store", false)
	require.NoError(t, err)

	require.NoError(t, svc.AssignToChannel(context.Background(), 3, created.ID))
	require.Len(t, repo.assignments, 1)
	assert.Equal(t, [2]int64{3, created.ID}, repo.assignments[0])

	err = svc.AssignToChannel(context.Background(), 3, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
