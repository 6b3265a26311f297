package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/repository"
)

func TestMemoryKeyValueRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryKeyValueRepository()

	_, err := repo.Get(ctx, "settings")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	value := []byte(`{"totalBudget":10}`)
	require.NoError(t, repo.Set(ctx, "settings", value))
	value[0] = 'x'

	got, err := repo.Get(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, `{"totalBudget":10}`, string(got))
}

func TestMemoryKeyValueRepositoryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewMemoryKeyValueRepository()

	assert.ErrorIs(t, repo.Set(ctx, "k", []byte("1")), context.Canceled)
	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryRemoteRepositoryReadWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRemoteRepository()

	_, err := repo.Read(ctx, "trips/ABCD")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.ReadMeta(ctx, "trips/ABCD")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	doc := `{"destinations":[],"settings":{"totalBudget":1,"peopleCount":1},"meta":{"updatedAt":42,"updatedBy":"client-a"}}`
	require.NoError(t, repo.Write(ctx, "trips/ABCD", []byte(doc)))

	got, err := repo.Read(ctx, "trips/ABCD")
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(got))

	meta, err := repo.ReadMeta(ctx, "trips/ABCD")
	require.NoError(t, err)
	assert.Equal(t, entity.RemoteMeta{UpdatedAt: 42, UpdatedBy: "client-a"}, meta)
}

func TestMemoryRemoteRepositoryMetaOfGarbage(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRemoteRepository()
	require.NoError(t, repo.Write(ctx, "p", []byte("not json")))

	meta, err := repo.ReadMeta(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, entity.RemoteMeta{}, meta)
}

func TestMemoryRemoteRepositorySubscribe(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRemoteRepository()

	var got []string
	unsubscribe, err := repo.Subscribe(ctx, "p", func(doc []byte) {
		got = append(got, string(doc))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Subscribers("p"))

	require.NoError(t, repo.Write(ctx, "p", []byte(`1`)))
	require.NoError(t, repo.Write(ctx, "other", []byte(`2`)))
	unsubscribe()
	unsubscribe()
	require.NoError(t, repo.Write(ctx, "p", []byte(`3`)))

	assert.Equal(t, []string{"1"}, got)
	assert.Equal(t, 0, repo.Subscribers("p"))
}
