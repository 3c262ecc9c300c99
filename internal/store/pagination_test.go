package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name               string
		total, page, size  int
		offset, totalPages int
		hasNext, hasPrev   bool
		wantPage           int
	}{
		{"first of three", 25, 1, 10, 0, 3, true, false, 1},
		{"middle", 25, 2, 10, 10, 3, true, true, 2},
		{"last partial", 25, 3, 10, 20, 3, false, true, 3},
		{"past the end", 25, 5, 10, 40, 3, false, true, 5},
		{"zero page clamps", 25, 0, 10, 0, 3, true, false, 1},
		{"negative page clamps", 25, -4, 10, 0, 3, true, false, 1},
		{"empty log", 0, 1, 10, 0, 0, false, false, 1},
		{"exact fit", 20, 2, 10, 10, 2, false, true, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := Paginate(tc.total, tc.page, tc.size)
			assert.Equal(t, tc.wantPage, w.Page)
			assert.Equal(t, tc.offset, w.Offset)
			assert.Equal(t, tc.totalPages, w.TotalPages)
			assert.Equal(t, tc.hasNext, w.HasNext)
			assert.Equal(t, tc.hasPrev, w.HasPrev)
		})
	}
}

func TestWindow(t *testing.T) {
	start, end := window(25, 20, 10)
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)

	start, end = window(25, 30, 10)
	assert.Equal(t, start, end)

	start, end = window(5, 0, 0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

func TestNewPage_NeverNullThoughts(t *testing.T) {
	p := NewPage(nil, Paginate(0, 1, 10))
	assert.NotNil(t, p.Thoughts)
	assert.Equal(t, 1, p.Page)
}
