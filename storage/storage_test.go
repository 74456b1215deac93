package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base, key, want string
	}{
		{"https://cdn.example.com", "brackets/a.json", "https://cdn.example.com/brackets/a.json"},
		{"https://cdn.example.com/", "/brackets/a.json", "https://cdn.example.com/brackets/a.json"},
		{"https://cdn.example.com/cup", "a.json", "https://cdn.example.com/cup/a.json"},
		{"", "a.json", ""},
		{"https://cdn.example.com", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, publicURL(tt.base, tt.key), "%s + %s", tt.base, tt.key)
	}
}

func TestMemoryUploader(t *testing.T) {
	ctx := context.Background()
	u := NewMemoryUploader("https://cdn.example.com")

	res, err := u.Upload(ctx, "brackets/x.json", "application/json", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/brackets/x.json", res.Location)
	assert.NotEmpty(t, res.ETag)

	body, ct, ok := u.Object("brackets/x.json")
	require.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "application/json", ct)

	require.NoError(t, u.Delete(ctx, "brackets/x.json"))
	assert.Empty(t, u.Keys())
}
