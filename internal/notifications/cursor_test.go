package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	want := pageCursor{CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := decodeCursor(want.encode())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	got, err := decodeCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"%%%", "bm8tc2VwYXJhdG9y", "eHx5"} {
		_, err := decodeCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestPageSizeBounds(t *testing.T) {
	assert.Equal(t, defaultPageSize, pageSize(0))
	assert.Equal(t, maxPageSize, pageSize(1000))
	assert.Equal(t, 10, pageSize(10))
}
