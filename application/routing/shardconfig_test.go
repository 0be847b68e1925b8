package routing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

func twoShardConfig(t *testing.T) *ShardConfiguration {
	t.Helper()
	cfg, err := NewShardConfiguration(map[ElementKind][]ShardGroup{
		ElementUser: {
			{HashRangeStart: math.MinInt32, ReaderURL: "http://a-reader", WriterURL: "http://a-writer"},
			{HashRangeStart: 0, ReaderURL: "http://b-reader", WriterURL: "http://b-writer"},
		},
		ElementGroup: {
			{HashRangeStart: math.MinInt32, ReaderURL: "http://g-reader", WriterURL: "http://g-writer"},
		},
		ElementGroupToGroupMapping: {
			{HashRangeStart: math.MinInt32, ReaderURL: "http://gg-reader", WriterURL: "http://gg-writer"},
		},
	})
	require.NoError(t, err)
	return cfg
}

func TestShardFor_BinarySearchOnSortedStarts(t *testing.T) {
	cfg := twoShardConfig(t)

	tests := []struct {
		hash int32
		url  string
	}{
		{-5, "http://a-writer"},
		{math.MinInt32, "http://a-writer"},
		{-1, "http://a-writer"},
		{0, "http://b-writer"},
		{17, "http://b-writer"},
		{math.MaxInt32, "http://b-writer"},
	}
	for _, tt := range tests {
		shard, err := cfg.ShardFor(ElementUser, tt.hash)
		require.NoError(t, err)
		assert.Equal(t, tt.url, shard.WriterURL, "hash %d", tt.hash)
	}
}

func TestShardFor_ExactlyOneShardOwnsEachHash(t *testing.T) {
	cfg, err := NewShardConfiguration(map[ElementKind][]ShardGroup{
		ElementUser: {
			{HashRangeStart: -1000, WriterURL: "w1"},
			{HashRangeStart: 0, WriterURL: "w2"},
			{HashRangeStart: 1000, WriterURL: "w3"},
		},
	})
	require.NoError(t, err)

	for _, hash := range []int32{math.MinInt32, -1001, -1000, -1, 0, 999, 1000, math.MaxInt32} {
		owner, err := cfg.ShardFor(ElementUser, hash)
		require.NoError(t, err)
		owners := 0
		shards := cfg.Shards(ElementUser)
		for i, s := range shards {
			end := cfg.RangeEnd(ElementUser, i)
			if rangeContains(s.HashRangeStart, end, hash) {
				owners++
				assert.Equal(t, owner.WriterURL, s.WriterURL)
			}
		}
		assert.Equal(t, 1, owners, "hash %d must be owned by exactly one shard", hash)
	}
}

func TestNewShardConfiguration_Validation(t *testing.T) {
	_, err := NewShardConfiguration(map[ElementKind][]ShardGroup{ElementUser: {}})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = NewShardConfiguration(map[ElementKind][]ShardGroup{
		ElementUser: {{HashRangeStart: 0}, {HashRangeStart: 0}},
	})
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestShardFor_UnknownKind(t *testing.T) {
	cfg := twoShardConfig(t)
	_, err := cfg.ShardFor(ElementKind("Mystery"), 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestElementKindOf(t *testing.T) {
	assert.Equal(t, ElementUser, elementKindOf(events.UserPayload{User: "u"}))
	assert.Equal(t, ElementUser, elementKindOf(events.UserToGroupPayload{User: "u", Group: "g"}))
	assert.Equal(t, ElementUser, elementKindOf(events.EntityTypePayload{EntityType: "et"}))
	assert.Equal(t, ElementGroup, elementKindOf(events.GroupPayload{Group: "g"}))
	assert.Equal(t, ElementGroup, elementKindOf(events.GroupToEntityPayload{Group: "g", EntityType: "et", Entity: "e"}))
	assert.Equal(t, ElementGroupToGroupMapping, elementKindOf(events.GroupToGroupPayload{FromGroup: "a", ToGroup: "b"}))
}

func TestRangeContains_Cyclic(t *testing.T) {
	assert.True(t, rangeContains(0, 100, 0))
	assert.True(t, rangeContains(0, 100, 99))
	assert.False(t, rangeContains(0, 100, 100))
	// Wrapping range.
	assert.True(t, rangeContains(100, 0, 100))
	assert.True(t, rangeContains(100, 0, math.MaxInt32))
	assert.True(t, rangeContains(100, 0, math.MinInt32))
	assert.False(t, rangeContains(100, 0, 50))
	// Full ring.
	assert.True(t, rangeContains(7, 7, 1234))
}
