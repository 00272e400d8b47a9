package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeLimit(t *testing.T) {
	for in, want := range map[int]int{0: DefaultLimit, -3: DefaultLimit, 1: 1, 10: 10, MaxLimit + 50: MaxLimit} {
		assert.Equal(t, want, NormalizeLimit(in), "limit %d", in)
	}
	assert.Equal(t, DefaultLimit+1, LimitWithBuffer(0))
}

func TestCursorEncoding(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	require.NoError(t, err)
	assert.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)

	blank, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, blank)

	for _, bad := range []string{"not-base64!", "bm8tc2VwYXJhdG9y", EncodeCursor(c)[:10]} {
		_, err := ParseCursor(bad)
		assert.ErrorIs(t, err, ErrBadCursor, "input %q", bad)
	}
}

func TestPaginate(t *testing.T) {
	rows := descending(4)
	self := func(c Cursor) Cursor { return c }

	page := Paginate(rows, 3, self)
	require.Len(t, page.Items, 3)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[2].ID, next.ID)

	last := Paginate(rows[:2], 3, self)
	assert.Len(t, last.Items, 2)
	assert.Empty(t, last.NextCursor)
}

type entry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func TestOlderThanWalksEveryRowOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entry{}))

	// two rows share a timestamp so the id tiebreak is exercised
	stamps := descending(5)
	stamps[2].CreatedAt = stamps[1].CreatedAt
	for _, s := range stamps {
		require.NoError(t, db.Create(&entry{ID: s.ID, CreatedAt: s.CreatedAt}).Error)
	}

	seen := map[uuid.UUID]bool{}
	var cursor *Cursor
	for pages := 0; pages < 10; pages++ {
		var rows []entry
		require.NoError(t, db.Scopes(OlderThan(cursor)).
			Order("created_at DESC, id DESC").
			Limit(LimitWithBuffer(2)).
			Find(&rows).Error)
		page := Paginate(rows, 2, func(e entry) Cursor { return Cursor{CreatedAt: e.CreatedAt, ID: e.ID} })
		for _, e := range page.Items {
			assert.False(t, seen[e.ID], "row %s returned twice", e.ID)
			seen[e.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor, err = ParseCursor(page.NextCursor)
		require.NoError(t, err)
	}
	assert.Len(t, seen, 5)
}

func descending(n int) []Cursor {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Cursor, n)
	for i := range out {
		out[i] = Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: uuid.New()}
	}
	return out
}
