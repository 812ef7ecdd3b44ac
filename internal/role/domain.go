package role

import (
	"time"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/permission"
)

// Reserved codes of the two roles every installation must have.
const (
	SuperAdminRoleCode        = "SUPER_ADMIN"
	SuperAdminRoleDescription = "SuperAdmin"
	CustomerRoleCode          = "CUSTOMER"
	CustomerRoleDescription   = "Customer"
)

// Role is a named, channel-scoped bundle of permissions.
type Role struct {
	ID          int64
	Code        string
	Description string
	Permissions []permission.Permission
	Channels    []channel.Channel
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Kind classifies a role by its code.
type Kind int

const (
	// KindCustom marks operator-defined roles, freely mutable.
	KindCustom Kind = iota
	// KindSystem marks the protected roles created at bootstrap.
	KindSystem
)

// Classify returns the kind for a role code.
func Classify(code string) Kind {
	switch code {
	case SuperAdminRoleCode, CustomerRoleCode:
		return KindSystem
	default:
		return KindCustom
	}
}

// Kind classifies the role by its code.
func (r *Role) Kind() Kind {
	return Classify(r.Code)
}

// HasPermission reports whether the role carries the permission.
func (r *Role) HasPermission(p permission.Permission) bool {
	return permission.Contains(r.Permissions, p)
}

// OnChannel reports whether the role is bound to the channel.
func (r *Role) OnChannel(channelID int64) bool {
	for _, ch := range r.Channels {
		if ch.ID == channelID {
			return true
		}
	}
	return false
}
