package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	valid := []string{"acme", "acme_corp", "a", "tenant42", "x_9"}
	for _, name := range valid {
		assert.True(t, ValidName(name), name)
	}
	invalid := []string{
		"", "9acme", "_acme", "Acme", "acme-corp", "acme.corp",
		"acme corp", `acme"; DROP SCHEMA public`, "pg_catalog\x00",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	for _, name := range invalid {
		assert.False(t, ValidName(name), "%q", name)
	}
}

func TestMemoryBinderBind(t *testing.T) {
	ctx := context.Background()
	binder := NewMemoryBinder("public")
	binder.AddSchema("acme")

	b, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", b.Schema())
	require.NoError(t, b.Release(ctx))

	// Unknown, invalid and empty names are all refused.
	_, err = binder.Bind(ctx, "nosuch")
	assert.Error(t, err)
	_, err = binder.Bind(ctx, "Bad Name")
	assert.ErrorIs(t, err, ErrInvalidName)

	// The public schema is always bindable.
	b, err = binder.Bind(ctx, "public")
	require.NoError(t, err)
	assert.Equal(t, "public", b.Schema())
}

func TestNestedWithRestoresPrior(t *testing.T) {
	ctx := context.Background()
	binder := NewMemoryBinder("public")
	binder.AddSchema("acme")
	binder.AddSchema("globex")

	b, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)

	err = b.With(ctx, "globex", func(ctx context.Context) error {
		assert.Equal(t, "globex", b.Schema())
		// Two levels deep still unwinds correctly.
		return b.With(ctx, "acme", func(context.Context) error {
			assert.Equal(t, "acme", b.Schema())
			return nil
		})
	})
	require.NoError(t, err)

	// Restored to acme, the schema bound before the nesting, not to
	// public.
	assert.Equal(t, "acme", b.Schema())
}

func TestWithUnknownSchemaFails(t *testing.T) {
	ctx := context.Background()
	binder := NewMemoryBinder("public")
	binder.AddSchema("acme")

	b, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)

	// A schema that was never provisioned is no more bindable nested
	// than it is at the top level.
	err = b.With(ctx, "ghost", func(context.Context) error {
		t.Fatal("fn must not run for an unknown schema")
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, "acme", b.Schema())
}

func TestWithRestoresOnError(t *testing.T) {
	ctx := context.Background()
	binder := NewMemoryBinder("public")
	binder.AddSchema("acme")
	binder.AddSchema("globex")

	b, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)

	wantErr := errors.New("query failed")
	err = b.With(ctx, "globex", func(context.Context) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, "acme", b.Schema())
}

func TestWithAfterReleaseFails(t *testing.T) {
	ctx := context.Background()
	binder := NewMemoryBinder("public")
	binder.AddSchema("acme")

	b, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, b.Release(ctx))

	err = b.With(ctx, "acme", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrReleased)
}

func TestBindingContext(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	binder := NewMemoryBinder("public")
	binder.AddSchema("acme")
	b, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)

	ctx = WithBinding(ctx, b)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme", got.Schema())
}
