// Package permission defines the closed catalog of capability identifiers.
// External strings enter the domain only through Parse; everything past
// that boundary works with the Permission type.
package permission

import (
	"fmt"

	"github.com/lumen-commerce/lumen/internal/shared"
)

// Permission is an atomic capability identifier from the closed catalog.
type Permission string

// Reserved permissions.
const (
	// Authenticated is implicitly carried by every role.
	Authenticated Permission = "Authenticated"
	// Owner grants access to records owned by the current session. It is
	// contextual and never granted to administrative roles.
	Owner Permission = "Owner"
)

// Grantable permissions.
const (
	CreateAdministrator Permission = "CreateAdministrator"
	ReadAdministrator   Permission = "ReadAdministrator"
	UpdateAdministrator Permission = "UpdateAdministrator"
	DeleteAdministrator Permission = "DeleteAdministrator"

	CreateCatalog Permission = "CreateCatalog"
	ReadCatalog   Permission = "ReadCatalog"
	UpdateCatalog Permission = "UpdateCatalog"
	DeleteCatalog Permission = "DeleteCatalog"

	CreateChannel Permission = "CreateChannel"
	ReadChannel   Permission = "ReadChannel"
	UpdateChannel Permission = "UpdateChannel"
	DeleteChannel Permission = "DeleteChannel"

	CreateCustomer Permission = "CreateCustomer"
	ReadCustomer   Permission = "ReadCustomer"
	UpdateCustomer Permission = "UpdateCustomer"
	DeleteCustomer Permission = "DeleteCustomer"

	CreateOrder Permission = "CreateOrder"
	ReadOrder   Permission = "ReadOrder"
	UpdateOrder Permission = "UpdateOrder"
	DeleteOrder Permission = "DeleteOrder"

	CreatePromotion Permission = "CreatePromotion"
	ReadPromotion   Permission = "ReadPromotion"
	UpdatePromotion Permission = "UpdatePromotion"
	DeletePromotion Permission = "DeletePromotion"

	CreateSettings Permission = "CreateSettings"
	ReadSettings   Permission = "ReadSettings"
	UpdateSettings Permission = "UpdateSettings"
	DeleteSettings Permission = "DeleteSettings"
)

// catalog lists every valid permission. Order is stable so provisioned
// permission sets are deterministic.
var catalog = []Permission{
	Authenticated,
	Owner,
	CreateAdministrator, ReadAdministrator, UpdateAdministrator, DeleteAdministrator,
	CreateCatalog, ReadCatalog, UpdateCatalog, DeleteCatalog,
	CreateChannel, ReadChannel, UpdateChannel, DeleteChannel,
	CreateCustomer, ReadCustomer, UpdateCustomer, DeleteCustomer,
	CreateOrder, ReadOrder, UpdateOrder, DeleteOrder,
	CreatePromotion, ReadPromotion, UpdatePromotion, DeletePromotion,
	CreateSettings, ReadSettings, UpdateSettings, DeleteSettings,
}

var catalogSet = func() map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(catalog))
	for _, p := range catalog {
		set[p] = struct{}{}
	}
	return set
}()

// All returns every valid permission.
func All() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// AllExceptOwner returns the full catalog minus Owner. This is the set
// provisioned to the superadmin role.
func AllExceptOwner() []Permission {
	out := make([]Permission, 0, len(catalog)-1)
	for _, p := range catalog {
		if p == Owner {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Valid reports whether p is a member of the catalog.
func Valid(p Permission) bool {
	_, ok := catalogSet[p]
	return ok
}

// Parse converts an external string into a Permission, rejecting anything
// outside the catalog with a ValidationError naming the value.
func Parse(raw string) (Permission, error) {
	p := Permission(raw)
	if !Valid(p) {
		return "", &shared.ValidationError{Field: "permission", Value: raw}
	}
	return p, nil
}

// ParseAll converts external strings into Permissions, failing on the
// first invalid value.
func ParseAll(raw []string) ([]Permission, error) {
	out := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p, err := Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Validate fails with a ValidationError on the first permission outside
// the catalog. It is pure and performs no I/O.
func Validate(perms []Permission) error {
	for _, p := range perms {
		if !Valid(p) {
			return &shared.ValidationError{Field: "permission", Value: string(p)}
		}
	}
	return nil
}

// Normalize deduplicates perms and guarantees Authenticated membership.
// Every role carries Authenticated whether or not the caller asked for it.
func Normalize(perms []Permission) []Permission {
	out := make([]Permission, 0, len(perms)+1)
	seen := make(map[Permission]struct{}, len(perms)+1)
	add := func(p Permission) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	add(Authenticated)
	for _, p := range perms {
		add(p)
	}
	return out
}

// Contains reports set membership.
func Contains(perms []Permission, p Permission) bool {
	for _, have := range perms {
		if have == p {
			return true
		}
	}
	return false
}

// Missing returns the members of want absent from have.
func Missing(have, want []Permission) []Permission {
	set := make(map[Permission]struct{}, len(have))
	for _, p := range have {
		set[p] = struct{}{}
	}
	var missing []Permission
	for _, p := range want {
		if _, ok := set[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// Strings converts a permission slice for serialization.
func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func (p Permission) String() string { return string(p) }

// GoString aids %#v debugging output.
func (p Permission) GoString() string { return fmt.Sprintf("permission.Permission(%q)", string(p)) }
