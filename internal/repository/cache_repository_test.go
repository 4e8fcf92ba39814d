package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

func TestCacheRepositoryKeys(t *testing.T) {
	repo := NewCacheRepository(nil, "alumni:", nil)

	full := repo.key("mentorship:suggestions:req-1")
	assert.Equal(t, "alumni:mentorship:suggestions:req-1", full)
	assert.Equal(t, "alumni:mentorship:suggestions:_index", groupIndex(full))
	assert.Equal(t, "_index", groupIndex("flat"))

	assert.Equal(t, "plain", NewCacheRepository(nil, "", nil).key("plain"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "alumni", nil)
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", []string{"v"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "mentorship:suggestions:*"))
}
