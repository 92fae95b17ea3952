package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	token, err := EncodeCursor(Cursor{ID: 99, CreatedAt: at})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(99), cursor.ID)
	assert.True(t, cursor.CreatedAt.Equal(at))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestTrim(t *testing.T) {
	rows := []int64{5, 4, 3}
	page, info := Trim(rows, 2, func(v int64) Cursor { return Cursor{ID: v} })
	assert.Equal(t, []int64{5, 4}, page)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cursor.ID)

	page, info = Trim(rows, 5, func(v int64) Cursor { return Cursor{ID: v} })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePageSize(0))
	assert.Equal(t, MaxPageSize, NormalizePageSize(1000))
	assert.Equal(t, 10, NormalizePageSize(10))
}
