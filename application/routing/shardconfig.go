// Package routing implements the shard router and the distributed
// coordinator: hash-range shard configuration, operation routing with fan-out
// and frontier expansion, and shard split/merge with a holding queue.
package routing

import (
	"fmt"
	"math"
	"sort"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// ElementKind names the three independently sharded data element types.
type ElementKind string

const (
	ElementUser                ElementKind = "User"
	ElementGroup               ElementKind = "Group"
	ElementGroupToGroupMapping ElementKind = "GroupToGroupMapping"
)

// ShardGroup describes one shard: the start of its hash range and the
// endpoints and storage credential of the nodes serving it. The range of a
// shard runs from its start up to the next shard's start, the last shard
// wrapping around past math.MaxInt32.
type ShardGroup struct {
	HashRangeStart    int32  `yaml:"hashRangeStart" json:"hashRangeStart"`
	StorageCredential string `yaml:"storageCredential,omitempty" json:"storageCredential,omitempty"`
	ReaderURL         string `yaml:"readerUrl" json:"readerUrl"`
	WriterURL         string `yaml:"writerUrl" json:"writerUrl"`
}

// ShardConfiguration is the cluster's routing table: per element kind, the
// shard groups sorted by hash range start. Immutable once built; the router
// swaps whole configurations atomically.
type ShardConfiguration struct {
	shards map[ElementKind][]ShardGroup
}

// NewShardConfiguration builds a configuration, sorting each kind's shards by
// hash range start. Every kind must have at least one shard and starts must
// be distinct within a kind.
func NewShardConfiguration(shards map[ElementKind][]ShardGroup) (*ShardConfiguration, error) {
	cfg := &ShardConfiguration{shards: make(map[ElementKind][]ShardGroup, len(shards))}
	for kind, groups := range shards {
		if len(groups) == 0 {
			return nil, apperrors.NewInvalidArgument("shards", fmt.Sprintf("element kind %s has no shard groups", kind))
		}
		sorted := make([]ShardGroup, len(groups))
		copy(sorted, groups)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].HashRangeStart < sorted[j].HashRangeStart })
		for i := 1; i < len(sorted); i++ {
			if sorted[i].HashRangeStart == sorted[i-1].HashRangeStart {
				return nil, apperrors.NewInvalidArgument("shards", fmt.Sprintf("element kind %s has duplicate hash range start %d", kind, sorted[i].HashRangeStart))
			}
		}
		cfg.shards[kind] = sorted
	}
	return cfg, nil
}

// Shards returns the sorted shard groups for a kind.
func (c *ShardConfiguration) Shards(kind ElementKind) []ShardGroup {
	return c.shards[kind]
}

// ShardFor returns the shard whose hash range contains hash. With starts
// sorted, the owner is the last shard whose start is <= hash; a hash below
// every start belongs to the last shard via wrap-around.
func (c *ShardConfiguration) ShardFor(kind ElementKind, hash int32) (ShardGroup, error) {
	groups, ok := c.shards[kind]
	if !ok || len(groups) == 0 {
		return ShardGroup{}, apperrors.NewNotFound("ShardConfiguration", string(kind))
	}
	// sort.Search finds the first start > hash; the owner precedes it.
	i := sort.Search(len(groups), func(i int) bool { return groups[i].HashRangeStart > hash })
	if i == 0 {
		return groups[len(groups)-1], nil
	}
	return groups[i-1], nil
}

// RangeEnd returns the exclusive end of the shard at index i, which is the
// next shard's start, or math.MaxInt32 wrapping for the last shard. Useful
// for split planning; the wrap-around end is reported as math.MinInt32.
func (c *ShardConfiguration) RangeEnd(kind ElementKind, i int) int32 {
	groups := c.shards[kind]
	if i == len(groups)-1 {
		return math.MinInt32
	}
	return groups[i+1].HashRangeStart
}

// replaceShard returns a copy of the configuration with one kind's shard list
// replaced. Used by the coordinator to cut over after a split or merge.
func (c *ShardConfiguration) replaceShard(kind ElementKind, groups []ShardGroup) (*ShardConfiguration, error) {
	next := make(map[ElementKind][]ShardGroup, len(c.shards))
	for k, v := range c.shards {
		next[k] = v
	}
	next[kind] = groups
	return NewShardConfiguration(next)
}

// elementKindOf maps an event payload to the element kind its primary element
// is sharded under.
func elementKindOf(payload events.Payload) ElementKind {
	switch payload.Kind() {
	case events.KindGroup, events.KindGroupToComponentAccess, events.KindGroupToEntity:
		return ElementGroup
	case events.KindGroupToGroup:
		return ElementGroupToGroupMapping
	default:
		// User events, entity catalogue events and user mappings all key on
		// the user shard set.
		return ElementUser
	}
}

// rangeContains reports whether hash lies in the cyclic half-open range
// [start, end). start == end denotes the full ring.
func rangeContains(start, end, hash int32) bool {
	if start == end {
		return true
	}
	if start < end {
		return hash >= start && hash < end
	}
	return hash >= start || hash < end
}
