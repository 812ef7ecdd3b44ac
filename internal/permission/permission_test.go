package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-commerce/lumen/internal/shared"
)

func TestParse(t *testing.T) {
	t.Run("accepts catalog members", func(t *testing.T) {
		p, err := Parse("CreateAdministrator")
		require.NoError(t, err)
		assert.Equal(t, CreateAdministrator, p)
	})

	t.Run("rejects unknown identifiers naming the value", func(t *testing.T) {
		_, err := Parse("NotARealPermission")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "NotARealPermission")
	})

	t.Run("is case sensitive", func(t *testing.T) {
		_, err := Parse("readcatalog")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestParseAll(t *testing.T) {
	t.Run("fails on the first invalid value", func(t *testing.T) {
		_, err := ParseAll([]string{"ReadCatalog", "Bogus", "AlsoBogus"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Bogus")
		assert.NotContains(t, err.Error(), "AlsoBogus")
	})

	t.Run("preserves order", func(t *testing.T) {
		perms, err := ParseAll([]string{"ReadOrder", "ReadCatalog"})
		require.NoError(t, err)
		assert.Equal(t, []Permission{ReadOrder, ReadCatalog}, perms)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]Permission{Authenticated, Owner, DeleteSettings}))
	assert.ErrorIs(t, Validate([]Permission{ReadCatalog, "Nope"}), shared.ErrValidation)
}

func TestNormalize(t *testing.T) {
	t.Run("adds Authenticated when absent", func(t *testing.T) {
		out := Normalize([]Permission{ReadCatalog})
		assert.Equal(t, []Permission{Authenticated, ReadCatalog}, out)
	})

	t.Run("deduplicates", func(t *testing.T) {
		out := Normalize([]Permission{ReadCatalog, Authenticated, ReadCatalog})
		assert.Equal(t, []Permission{Authenticated, ReadCatalog}, out)
	})

	t.Run("empty input yields Authenticated only", func(t *testing.T) {
		assert.Equal(t, []Permission{Authenticated}, Normalize(nil))
	})
}

func TestAllExceptOwner(t *testing.T) {
	everything := All()
	provisioned := AllExceptOwner()

	assert.Len(t, provisioned, len(everything)-1)
	assert.False(t, Contains(provisioned, Owner))
	assert.True(t, Contains(provisioned, Authenticated))
	for _, p := range provisioned {
		assert.True(t, Valid(p), string(p))
	}
}

func TestMissing(t *testing.T) {
	have := []Permission{Authenticated, ReadCatalog}
	want := []Permission{Authenticated, ReadCatalog, UpdateCatalog}
	assert.Equal(t, []Permission{UpdateCatalog}, Missing(have, want))
	assert.Empty(t, Missing(want, have))
}
