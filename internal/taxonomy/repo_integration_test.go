package taxonomy

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestPool connects to the database named by TEST_DB_DSN.
// Skips the test when the variable is not set.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping PostgreSQL integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)
	return pool
}

func TestCategoryLifecycle(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	name := "Integración " + uuid.NewString()[:8]
	parent, err := repo.CreateCategory(ctx, NewCategory{Name: name, IsActive: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteCategory(ctx, parent.ID) })

	assert.Equal(t, name, parent.Name)
	assert.NotEmpty(t, parent.Slug)

	// Lookup works by id and by slug.
	byID, err := repo.GetCategory(ctx, parent.ID)
	require.NoError(t, err)
	bySlug, err := repo.GetCategory(ctx, parent.Slug)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, bySlug.ID)

	child, err := repo.CreateCategory(ctx, NewCategory{
		Name:     name + " hija",
		ParentID: &parent.ID,
		IsActive: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteCategory(ctx, child.ID) })

	err = repo.DeleteCategory(ctx, parent.ID)
	assert.True(t, errors.Is(err, ErrHasChildren))

	require.NoError(t, repo.DeleteCategory(ctx, child.ID))
	require.NoError(t, repo.DeleteCategory(ctx, parent.ID))

	_, err = repo.GetCategory(ctx, parent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategorySlugCollisionRetries(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	name := "Duplicada " + uuid.NewString()[:8]
	first, err := repo.CreateCategory(ctx, NewCategory{Name: name, IsActive: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteCategory(ctx, first.ID) })

	second, err := repo.CreateCategory(ctx, NewCategory{Name: name, IsActive: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteCategory(ctx, second.ID) })

	assert.NotEqual(t, first.Slug, second.Slug)
}

func TestTagDuplicateName(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	name := "etiqueta-" + uuid.NewString()[:8]
	tag, err := repo.CreateTag(ctx, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.DeleteTag(ctx, tag.ID) })

	_, err = repo.CreateTag(ctx, name)
	assert.ErrorIs(t, err, ErrDuplicate)
}
