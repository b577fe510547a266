package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutSite(ctx, "lead-1", map[string]string{
		"index.html":   "<h1>Ace</h1>",
		"/styles.css":  "h1{}",
		"pages/a.html": "<p>a</p>",
	}))
	require.NoError(t, s.PutSite(ctx, "lead-2", map[string]string{"index.html": "other"}))

	got, err := s.GetSite(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"index.html":   "<h1>Ace</h1>",
		"styles.css":   "h1{}",
		"pages/a.html": "<p>a</p>",
	}, got)

	_, err = s.GetSite(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestObjectKey_RejectsEscapes(t *testing.T) {
	_, err := objectKey("lead-1", "../../etc/passwd")
	assert.Error(t, err)
	_, err = objectKey("", "index.html")
	assert.Error(t, err)

	key, err := objectKey("lead-1", "a/../index.html")
	require.NoError(t, err)
	assert.Equal(t, "sites/lead-1/index.html", key)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", contentType("index.HTML"))
	assert.Equal(t, "text/css; charset=utf-8", contentType("styles.css"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("README"))
}

func TestS3Config_Enabled(t *testing.T) {
	assert.False(t, S3Config{}.Enabled())
	assert.True(t, S3Config{Endpoint: "localhost:9000", Bucket: "sites"}.Enabled())
}
