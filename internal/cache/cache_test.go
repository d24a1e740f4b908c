package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopReportCacheNeverHits(t *testing.T) {
	var c ReportCache = NoopReportCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var out map[string]int
	hit, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Invalidate(ctx))
}

func TestEntryKeyIncludesGeneration(t *testing.T) {
	assert.Equal(t, "cafepos:reports:3:summary:a:b", entryKey(3, "summary:a:b"))
	assert.NotEqual(t, entryKey(1, "x"), entryKey(2, "x"))
}
