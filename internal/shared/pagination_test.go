package shared

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationPageCount(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{total: 0, want: 0},
		{total: 1, want: 1},
		{total: 10, want: 1},
		{total: 11, want: 2},
		{total: 25, want: 3},
	}
	for _, tt := range tests {
		p := NewPagination(1, 10, tt.total)
		assert.Equal(t, tt.want, p.TotalPages, "total=%d", tt.total)
	}
}

func TestNewPaginationClampsPage(t *testing.T) {
	p := NewPagination(-4, 10, 30)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 10, 30)
	assert.Equal(t, 20, p.Offset())
}

func TestNewPaginationHugePageKeepsOffsetPositive(t *testing.T) {
	p := NewPagination(922337203685477590, 10, 30)
	assert.Positive(t, p.Offset())
	assert.True(t, p.Beyond())
	assert.False(t, p.HasNext())

	p = NewPagination(math.MaxInt, 1, 5)
	assert.GreaterOrEqual(t, p.Offset(), 0)
	first, last := p.Window()
	assert.Equal(t, 5, last)
	assert.Greater(t, first, last)
	assert.Empty(t, p.Pages())
}

func TestPaginationWindow(t *testing.T) {
	tests := []struct {
		page        int
		first, last int
	}{
		{page: 1, first: 1, last: 4},
		{page: 5, first: 2, last: 8},
		{page: 10, first: 7, last: 10},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, 10, 100)
		first, last := p.Window()
		assert.Equal(t, tt.first, first, "page=%d", tt.page)
		assert.Equal(t, tt.last, last, "page=%d", tt.page)
	}
}

func TestPaginationPages(t *testing.T) {
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, NewPagination(5, 10, 100).Pages())
	assert.Empty(t, NewPagination(1, 10, 0).Pages())
	assert.Empty(t, NewPagination(9, 10, 25).Pages())
}

func TestPaginationNeighbours(t *testing.T) {
	p := NewPagination(1, 10, 25)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = NewPagination(3, 10, 25)
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())
}
