package channel

import "time"

// DefaultChannelCode is the code of the channel every installation owns.
const DefaultChannelCode = "__default_channel__"

// Channel represents a tenant scope roles can be bound to.
type Channel struct {
	ID        int64
	Code      string
	Token     string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
