package user

import (
	"time"

	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/role"
)

// User is a read model for authorization queries. This core never mutates
// users; role membership is managed elsewhere.
type User struct {
	ID         int64
	Identifier string
	Roles      []role.Role
	CreatedAt  time.Time
}

// ChannelPermissions is the effective permission set on one channel.
type ChannelPermissions struct {
	ChannelID   int64
	ChannelCode string
	Permissions []permission.Permission
}

// PermissionsByChannel projects the user's effective permissions per
// channel: for each channel, the union of permissions across every role of
// the user bound to that channel. Roles and their channels must be loaded.
func PermissionsByChannel(u *User) []ChannelPermissions {
	byChannel := make(map[int64]*ChannelPermissions)
	var order []int64
	for _, r := range u.Roles {
		for _, ch := range r.Channels {
			entry, ok := byChannel[ch.ID]
			if !ok {
				entry = &ChannelPermissions{ChannelID: ch.ID, ChannelCode: ch.Code}
				byChannel[ch.ID] = entry
				order = append(order, ch.ID)
			}
			for _, p := range r.Permissions {
				if !permission.Contains(entry.Permissions, p) {
					entry.Permissions = append(entry.Permissions, p)
				}
			}
		}
	}
	out := make([]ChannelPermissions, 0, len(order))
	for _, id := range order {
		out = append(out, *byChannel[id])
	}
	return out
}

// On returns the effective permission set for one channel, if any.
func On(projection []ChannelPermissions, channelID int64) (ChannelPermissions, bool) {
	for _, cp := range projection {
		if cp.ChannelID == channelID {
			return cp, true
		}
	}
	return ChannelPermissions{}, false
}
