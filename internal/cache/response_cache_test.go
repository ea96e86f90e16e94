package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return mr, &RedisClient{Client: rdb}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type storyPayload struct {
	Genre     string `json:"genre"`
	Character string `json:"character"`
	Setting   string `json:"setting"`
}

func TestKey_Deterministic(t *testing.T) {
	payload := storyPayload{Genre: "mystery", Character: "a tired detective", Setting: "a rainy harbor town"}

	first := Key("story", "claude-sonnet-4-5", payload)
	second := Key("story", "claude-sonnet-4-5", payload)
	assert.Equal(t, first, second)

	differentModel := Key("story", "gemini-2.5-flash", payload)
	assert.NotEqual(t, first, differentModel)

	differentPayload := Key("story", "claude-sonnet-4-5", storyPayload{Genre: "romance"})
	assert.NotEqual(t, first, differentPayload)

	differentOp := Key("names", "claude-sonnet-4-5", payload)
	assert.NotEqual(t, first, differentOp)
}

func TestKey_DoesNotLeakPayload(t *testing.T) {
	key := Key("summaries", "claude-sonnet-4-5", storyPayload{Genre: "super-secret-content"})
	assert.NotContains(t, key, "super-secret-content")
}

func TestResponseCache_SetGet(t *testing.T) {
	_, client := setupRedis(t)
	rc := NewResponseCache(client, time.Hour, testLogger())

	type response struct {
		Story string `json:"story"`
		Model string `json:"model"`
	}

	key := Key("story", "claude-sonnet-4-5", storyPayload{Genre: "mystery"})
	rc.Set(context.Background(), key, response{Story: "It was a dark night.", Model: "claude-sonnet-4-5"})

	var got response
	hit := rc.Get(context.Background(), key, &got)

	assert.True(t, hit)
	assert.Equal(t, "It was a dark night.", got.Story)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
}

func TestResponseCache_Miss(t *testing.T) {
	_, client := setupRedis(t)
	rc := NewResponseCache(client, time.Hour, testLogger())

	var got map[string]any
	hit := rc.Get(context.Background(), "studio:story:nothing-here", &got)

	assert.False(t, hit)
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	mr, client := setupRedis(t)
	rc := NewResponseCache(client, time.Minute, testLogger())

	key := Key("model", "claude-sonnet-4-5", map[string]string{"input": "hello"})
	rc.Set(context.Background(), key, map[string]string{"text": "hi"})

	var got map[string]string
	require.True(t, rc.Get(context.Background(), key, &got))

	mr.FastForward(time.Minute + time.Second)

	hit := rc.Get(context.Background(), key, &got)
	assert.False(t, hit)
}

func TestResponseCache_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	rc := NewResponseCache(client, time.Hour, testLogger())

	mr.Close()

	// Degrades to a miss, never errors out of the request path.
	var got map[string]any
	assert.False(t, rc.Get(context.Background(), "studio:story:any", &got))
	assert.NotPanics(t, func() {
		rc.Set(context.Background(), "studio:story:any", map[string]string{"text": "x"})
	})
}
