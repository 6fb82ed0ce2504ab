package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-copilot-api/internal/domain/entity"
)

func TestLRU_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(4)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRU_ExpiresPerEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(4)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("y"), time.Hour))

	now = now.Add(2 * time.Second)

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "long")
	assert.True(t, ok)
}

func TestLRU_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestProjectStateCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := NewLRU(8)
	require.NoError(t, err)
	c := NewProjectStateCache(kv, time.Minute)

	_, token, ok := c.Get(ctx, "Project 1")
	require.False(t, ok)
	require.NotEmpty(t, token)

	c.Set(ctx, entity.NewProject("Project 1"), token)

	got, _, ok := c.Get(ctx, "Project 1")
	require.True(t, ok)
	assert.Equal(t, "Project 1", got.Name)
	require.Len(t, got.Versions, 1)
	assert.Equal(t, entity.SeedDiagram, got.Versions[0].PlantUML)
	assert.Nil(t, got.Versions[0].UserInput)

	c.Invalidate(ctx, "Project 1")
	_, _, ok = c.Get(ctx, "Project 1")
	assert.False(t, ok)
}

func TestProjectStateCache_SetWithoutTokenIsIgnored(t *testing.T) {
	ctx := context.Background()
	kv, err := NewLRU(8)
	require.NoError(t, err)
	c := NewProjectStateCache(kv, time.Minute)

	c.Set(ctx, entity.NewProject("Project 1"), "")
	_, ok, err := kv.Get(ctx, ProjectStateKey("Project 1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjectStateCache_InvalidateRejectsInFlightFill(t *testing.T) {
	ctx := context.Background()
	kv, err := NewLRU(16)
	require.NoError(t, err)
	// 两个实例共享同一个 KV，相当于 API 进程与 worker 进程共用 Redis
	reader := NewProjectStateCache(kv, time.Minute)
	writer := NewProjectStateCache(kv, time.Minute)

	_, token, ok := reader.Get(ctx, "Project 1")
	require.False(t, ok)

	// 读者拿到令牌后、回填前，写者提交并失效
	writer.Invalidate(ctx, "Project 1")
	reader.Set(ctx, entity.NewProject("Project 1"), token)

	_, fresh, ok := reader.Get(ctx, "Project 1")
	assert.False(t, ok, "stale fill must not be served")
	assert.NotEqual(t, token, fresh)

	// 新令牌的回填正常生效
	reader.Set(ctx, entity.NewProject("Project 1"), fresh)
	_, _, ok = writer.Get(ctx, "Project 1")
	assert.True(t, ok)
}

func TestProjectStateCache_IgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	kv, err := NewLRU(8)
	require.NoError(t, err)
	c := NewProjectStateCache(kv, time.Minute)

	require.NoError(t, kv.Set(ctx, ProjectStateKey("broken"), []byte("{not json"), 0))
	_, _, ok := c.Get(ctx, "broken")
	assert.False(t, ok)

	_, ok, err = kv.Get(ctx, ProjectStateKey("broken"))
	require.NoError(t, err)
	assert.False(t, ok)
}
