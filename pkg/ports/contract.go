package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/boto/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	key := "contract:" + time.Now().Format("20060102150405.000")

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, "get_location", time.Minute))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "get_location", got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, "menu", time.Minute))
		require.NoError(t, store.Set(ctx, key, "feedback", time.Minute))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "feedback", got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "missing:"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, "menu", time.Minute))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "missing:"+key))
	})
}
