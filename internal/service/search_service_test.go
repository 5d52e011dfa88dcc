package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

func TestSearchRejectsBadInputWithoutQuerying(t *testing.T) {
	repo := &fakeSearchRepo{}
	s := NewSearchService(repo, nil)

	for _, q := range []string{"", "a", "drop table;", "water <script>", string(make([]byte, 101))} {
		_, err := s.Search(context.Background(), "u1", q)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%q", q)
	}
	assert.Empty(t, repo.queries)
}

func TestSearchGroupsResultsByType(t *testing.T) {
	repo := &fakeSearchRepo{}
	s := NewSearchService(repo, nil)

	hits, err := s.Search(context.Background(), "u1", "Water Damage")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "report", hits[0].Type)
	assert.Equal(t, "client", hits[1].Type)
	assert.Equal(t, "inspection", hits[2].Type)
	assert.Contains(t, repo.queries, "report:'water':* & 'damage':*")
}
