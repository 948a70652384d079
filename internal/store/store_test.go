package store

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("", zerolog.Nop())
	require.Error(t, err)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		limit      int
		totalPages int
	}{
		{name: "exact pages", total: 40, page: 1, limit: 20, totalPages: 2},
		{name: "partial last page", total: 41, page: 3, limit: 20, totalPages: 3},
		{name: "empty", total: 0, page: 1, limit: 20, totalPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paginate(tt.total, tt.page, tt.limit)
			require.Equal(t, tt.total, p.TotalItems)
			require.Equal(t, tt.totalPages, p.TotalPages)
			require.Equal(t, tt.page, p.CurrentPage)
			require.Equal(t, tt.limit, p.PageSize)
		})
	}
}
