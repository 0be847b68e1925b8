package routing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/hashing"
	"appaccess-backend/pkg/observability"
)

var (
	metricMutationsRouted  = observability.NewCounter("MutationsRouted", "Mutations forwarded to a shard writer", observability.CategoryRouting)
	metricQueriesRouted    = observability.NewCounter("QueriesRouted", "Queries forwarded to shard readers", observability.CategoryRouting)
	metricFanOutQueries    = observability.NewCounter("FanOutQueries", "Queries fanned out to every shard of a kind", observability.CategoryRouting)
	metricRoutingRetries   = observability.NewCounter("RoutingRetries", "Operations retried after a configuration refresh", observability.CategoryRouting)
	metricConfigRefreshes  = observability.NewCounter("ConfigurationRefreshes", "Shard configuration refreshes", observability.CategoryRouting)
	metricHeldMutations    = observability.NewCounter("HeldMutations", "Mutations parked in the holding queue during a split", observability.CategoryRouting)
	metricFrontierExpanded = observability.NewAmount("FrontierExpansions", "Frontier expansion iterations for transitive group queries", observability.CategoryRouting)
)

// WriterClient forwards one mutation to a shard's writer node.
type WriterClient interface {
	ApplyMutation(ctx context.Context, writerURL string, action events.Action, payload events.Payload) error
}

// ReaderClient forwards queries to a shard's reader node.
type ReaderClient interface {
	GetUserToGroupMappings(ctx context.Context, readerURL, user string, includeIndirect bool) ([]string, error)
	GetGroupToUserMappings(ctx context.Context, readerURL, group string, includeIndirect bool) ([]string, error)
	GetGroupToGroupMappings(ctx context.Context, readerURL, group string, includeIndirect bool) ([]string, error)
	GetGroupToGroupReverseMappings(ctx context.Context, readerURL, group string, includeIndirect bool) ([]string, error)
	HasAccessToApplicationComponent(ctx context.Context, readerURL, user, component, accessLevel string) (bool, error)
}

// ConfigurationSource supplies the current shard configuration, typically a
// coordination endpoint or a watched file.
type ConfigurationSource interface {
	Fetch(ctx context.Context) (*ShardConfiguration, error)
}

// Config holds the router's tunables.
type Config struct {
	// RefreshInterval is the period of the configuration refresh loop.
	RefreshInterval time.Duration
}

// Router forwards operations to the shard owning each element's hash. It
// holds the configuration behind an atomic pointer so refreshes and split
// cutovers never block in-flight routing.
type Router struct {
	config  atomic.Pointer[ShardConfiguration]
	holding atomic.Pointer[holdingQueue]

	writers WriterClient
	readers ReaderClient
	source  ConfigurationSource
	hasher  hashing.HashCodeGenerator
	cfg     Config
	logger  *zap.Logger
	metrics observability.MetricSink
}

// NewRouter creates a router over an initial configuration.
func NewRouter(initial *ShardConfiguration, writers WriterClient, readers ReaderClient, source ConfigurationSource, hasher hashing.HashCodeGenerator, cfg Config, logger *zap.Logger, metrics observability.MetricSink) *Router {
	r := &Router{
		writers: writers,
		readers: readers,
		source:  source,
		hasher:  hasher,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
	r.config.Store(initial)
	return r
}

// Configuration returns the current routing table.
func (r *Router) Configuration() *ShardConfiguration {
	return r.config.Load()
}

// RefreshConfiguration fetches and installs the latest configuration.
func (r *Router) RefreshConfiguration(ctx context.Context) error {
	next, err := r.source.Fetch(ctx)
	if err != nil {
		return apperrors.Wrap(err, "fetching shard configuration")
	}
	r.config.Store(next)
	r.metrics.Increment(metricConfigRefreshes)
	return nil
}

// RunConfigRefresh refreshes the configuration on the configured interval
// until ctx is cancelled.
func (r *Router) RunConfigRefresh(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshConfiguration(ctx); err != nil {
				r.logger.Warn("shard configuration refresh failed", zap.Error(err))
			}
		}
	}
}

// RouteMutation forwards a mutation to the writer of the shard owning the
// payload's primary element. During a split, mutations touching the moving
// range are parked in the holding queue and applied at cutover. A routing
// failure triggers one configuration refresh and one retry.
func (r *Router) RouteMutation(ctx context.Context, action events.Action, payload events.Payload) error {
	kind := elementKindOf(payload)
	hash := r.hasher.HashCode(payload.PrimaryElement())

	if hq := r.holding.Load(); hq != nil && hq.covers(kind, hash) {
		hq.enqueue(heldMutation{action: action, payload: payload})
		r.metrics.Increment(metricHeldMutations)
		return nil
	}

	err := r.sendMutation(ctx, kind, hash, action, payload)
	if !isRoutingError(err) {
		if err == nil {
			r.metrics.Increment(metricMutationsRouted)
		}
		return err
	}
	if refreshErr := r.RefreshConfiguration(ctx); refreshErr != nil {
		return err
	}
	r.metrics.Increment(metricRoutingRetries)
	if err := r.sendMutation(ctx, kind, hash, action, payload); err != nil {
		return err
	}
	r.metrics.Increment(metricMutationsRouted)
	return nil
}

func (r *Router) sendMutation(ctx context.Context, kind ElementKind, hash int32, action events.Action, payload events.Payload) error {
	shard, err := r.Configuration().ShardFor(kind, hash)
	if err != nil {
		return err
	}
	return r.writers.ApplyMutation(ctx, shard.WriterURL, action, payload)
}

// GetUserToGroupMappings routes the query to the user's shard. Indirect
// closure through groups hosted on other shards is completed by frontier
// expansion over the group-to-group shards.
func (r *Router) GetUserToGroupMappings(ctx context.Context, user string, includeIndirect bool) ([]string, error) {
	var direct []string
	err := r.withRetry(ctx, func(cfg *ShardConfiguration) error {
		shard, err := cfg.ShardFor(ElementUser, r.hasher.HashCode(user))
		if err != nil {
			return err
		}
		direct, err = r.readers.GetUserToGroupMappings(ctx, shard.ReaderURL, user, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.metrics.Increment(metricQueriesRouted)
	if !includeIndirect {
		return direct, nil
	}
	closure, err := r.expandGroupFrontier(ctx, direct)
	if err != nil {
		return nil, err
	}
	return closure, nil
}

// GetGroupToUserMappings fans the query out to every user shard and unions
// the results. With includeIndirect the group closure feeding the fan-out is
// expanded first.
func (r *Router) GetGroupToUserMappings(ctx context.Context, group string, includeIndirect bool) ([]string, error) {
	groups := []string{group}
	if includeIndirect {
		closure, err := r.expandGroupReverseFrontier(ctx, group)
		if err != nil {
			return nil, err
		}
		groups = closure
	}

	cfg := r.Configuration()
	shards := cfg.Shards(ElementUser)
	r.metrics.Increment(metricFanOutQueries)

	type shardResult struct {
		users []string
		err   error
	}
	results := make([]shardResult, len(shards))
	var wg sync.WaitGroup
	for i, shard := range shards {
		wg.Add(1)
		go func(i int, readerURL string) {
			defer wg.Done()
			seen := map[string]struct{}{}
			for _, g := range groups {
				users, err := r.readers.GetGroupToUserMappings(ctx, readerURL, g, false)
				if err != nil {
					if apperrors.IsNotFound(err) {
						continue
					}
					results[i].err = err
					return
				}
				for _, u := range users {
					seen[u] = struct{}{}
				}
			}
			for u := range seen {
				results[i].users = append(results[i].users, u)
			}
		}(i, shard.ReaderURL)
	}
	wg.Wait()

	union := map[string]struct{}{}
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		for _, u := range res.users {
			union[u] = struct{}{}
		}
	}
	users := make([]string, 0, len(union))
	for u := range union {
		users = append(users, u)
	}
	return users, nil
}

// GetGroupToGroupMappings routes the direct query by the group's hash; with
// includeIndirect it iteratively expands the frontier across shards until it
// stops growing.
func (r *Router) GetGroupToGroupMappings(ctx context.Context, group string, includeIndirect bool) ([]string, error) {
	direct, err := r.directGroupMappings(ctx, group)
	if err != nil {
		return nil, err
	}
	r.metrics.Increment(metricQueriesRouted)
	if !includeIndirect {
		return direct, nil
	}
	return r.expandGroupFrontier(ctx, direct)
}

// HasAccessToApplicationComponent routes the check to the user's shard.
func (r *Router) HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string) (bool, error) {
	var has bool
	err := r.withRetry(ctx, func(cfg *ShardConfiguration) error {
		shard, err := cfg.ShardFor(ElementUser, r.hasher.HashCode(user))
		if err != nil {
			return err
		}
		has, err = r.readers.HasAccessToApplicationComponent(ctx, shard.ReaderURL, user, component, accessLevel)
		return err
	})
	if err != nil {
		return false, err
	}
	r.metrics.Increment(metricQueriesRouted)
	return has, nil
}

func (r *Router) directGroupMappings(ctx context.Context, group string) ([]string, error) {
	var direct []string
	err := r.withRetry(ctx, func(cfg *ShardConfiguration) error {
		shard, err := cfg.ShardFor(ElementGroupToGroupMapping, r.hasher.HashCode(group))
		if err != nil {
			return err
		}
		direct, err = r.readers.GetGroupToGroupMappings(ctx, shard.ReaderURL, group, false)
		return err
	})
	return direct, err
}

// expandGroupFrontier computes the transitive closure of the seed groups by
// repeatedly querying each frontier group's shard for its direct mappings
// until no new group appears.
func (r *Router) expandGroupFrontier(ctx context.Context, seeds []string) ([]string, error) {
	visited := map[string]struct{}{}
	frontier := append([]string(nil), seeds...)
	for _, g := range frontier {
		visited[g] = struct{}{}
	}
	iterations := 0
	for len(frontier) > 0 {
		iterations++
		var next []string
		for _, g := range frontier {
			mapped, err := r.directGroupMappings(ctx, g)
			if err != nil {
				if apperrors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			for _, m := range mapped {
				if _, ok := visited[m]; !ok {
					visited[m] = struct{}{}
					next = append(next, m)
				}
			}
		}
		frontier = next
	}
	r.metrics.Add(metricFrontierExpanded, int64(iterations))
	result := make([]string, 0, len(visited))
	for g := range visited {
		result = append(result, g)
	}
	return result, nil
}

// expandGroupReverseFrontier computes the set of groups from which the target
// group is reachable, the target included. Reverse edges are found by asking
// every group-to-group shard which of its groups map into the frontier.
func (r *Router) expandGroupReverseFrontier(ctx context.Context, group string) ([]string, error) {
	// Reverse edges have no single owning shard; a mapping into g is keyed
	// by its from-group, so every shard's reverse endpoint must be asked.
	visited := map[string]struct{}{group: {}}
	frontier := []string{group}
	for len(frontier) > 0 {
		var next []string
		for _, g := range frontier {
			parents, err := r.reverseGroupMappings(ctx, g)
			if err != nil {
				if apperrors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			for _, p := range parents {
				if _, ok := visited[p]; !ok {
					visited[p] = struct{}{}
					next = append(next, p)
				}
			}
		}
		frontier = next
	}
	result := make([]string, 0, len(visited))
	for g := range visited {
		result = append(result, g)
	}
	return result, nil
}

// reverseGroupMappings asks every group-to-group shard for the groups mapping
// directly into g and unions the answers. Reverse edges of g can live on any
// shard because mappings are keyed by their from-group.
func (r *Router) reverseGroupMappings(ctx context.Context, g string) ([]string, error) {
	cfg := r.Configuration()
	union := map[string]struct{}{}
	for _, shard := range cfg.Shards(ElementGroupToGroupMapping) {
		parents, err := r.readers.GetGroupToGroupReverseMappings(ctx, shard.ReaderURL, g, false)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, p := range parents {
			union[p] = struct{}{}
		}
	}
	result := make([]string, 0, len(union))
	for p := range union {
		result = append(result, p)
	}
	return result, nil
}

// withRetry runs op against the current configuration, refreshing and
// retrying once on a routing error.
func (r *Router) withRetry(ctx context.Context, op func(cfg *ShardConfiguration) error) error {
	err := op(r.Configuration())
	if !isRoutingError(err) {
		return err
	}
	if refreshErr := r.RefreshConfiguration(ctx); refreshErr != nil {
		return err
	}
	r.metrics.Increment(metricRoutingRetries)
	return op(r.Configuration())
}

// isRoutingError reports whether an operation failed because it reached a
// shard that no longer owns the element's range, which a configuration
// refresh may fix. Downstream outages surface as ServiceUnavailable.
func isRoutingError(err error) bool {
	return apperrors.IsServiceUnavailable(err)
}
