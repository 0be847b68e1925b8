package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingSink captures every call for assertions.
type recordingSink struct {
	increments []string
	adds       map[string]int64
	sets       map[string]int64
	begins     []string
	ends       []IntervalID
	cancels    []IntervalID
	nextID     IntervalID
}

func newRecordingSink() *recordingSink {
	return &recordingSink{adds: map[string]int64{}, sets: map[string]int64{}}
}

func (r *recordingSink) Increment(m *Metric)      { r.increments = append(r.increments, m.Name()) }
func (r *recordingSink) Add(m *Metric, n int64)   { r.adds[m.Name()] += n }
func (r *recordingSink) Set(m *Metric, v int64)   { r.sets[m.Name()] = v }
func (r *recordingSink) Begin(m *Metric) IntervalID {
	r.nextID++
	r.begins = append(r.begins, m.Name())
	return r.nextID
}
func (r *recordingSink) End(id IntervalID, m *Metric)         { r.ends = append(r.ends, id) }
func (r *recordingSink) CancelBegin(id IntervalID, m *Metric) { r.cancels = append(r.cancels, id) }

func TestCategoryIsAssignableTo(t *testing.T) {
	base := NewCategory("Query")
	child := base.SubCategory("EntityQuery")
	other := NewCategory("Routing")

	assert.True(t, base.IsAssignableTo(base))
	assert.True(t, child.IsAssignableTo(base))
	assert.False(t, base.IsAssignableTo(child))
	assert.False(t, child.IsAssignableTo(other))
}

func TestFilteredSink_IncludesAssignableCategories(t *testing.T) {
	rec := newRecordingSink()
	queryCategory := NewCategory("Query")
	filter := NewFilteredMetricSink(rec, IncludeAll(queryCategory))

	included := NewCounter("queries_received", "", queryCategory.SubCategory("UserQuery"))
	excluded := NewCounter("events_buffered", "", NewCategory("Event"))

	filter.Increment(included)
	filter.Increment(excluded)

	assert.Equal(t, []string{"queries_received"}, rec.increments)
}

func TestFilteredSink_KindsFilterIndependently(t *testing.T) {
	rec := newRecordingSink()
	query := NewCategory("Query")
	event := NewCategory("Event")
	filter := NewFilteredMetricSink(rec, FilterConfig{
		CounterCategories: []*Category{query},
		AmountCategories:  []*Category{event},
	})

	filter.Increment(NewCounter("c_query", "", query))
	filter.Increment(NewCounter("c_event", "", event))
	filter.Add(NewAmount("a_query", "", query), 5)
	filter.Add(NewAmount("a_event", "", event), 7)

	assert.Equal(t, []string{"c_query"}, rec.increments)
	assert.Equal(t, map[string]int64{"a_event": 7}, rec.adds)
}

func TestFilteredSink_FilteredIntervalReturnsSentinel(t *testing.T) {
	rec := newRecordingSink()
	filter := NewFilteredMetricSink(rec, FilterConfig{})
	interval := NewInterval("refresh_time", "", NewCategory("Replication"))

	id := filter.Begin(interval)

	assert.Equal(t, FilteredIntervalID, id)

	// End and CancelBegin with the sentinel must never reach the sink.
	filter.End(id, interval)
	filter.CancelBegin(id, interval)
	assert.Empty(t, rec.ends)
	assert.Empty(t, rec.cancels)
}

func TestFilteredSink_IncludedIntervalPassesThrough(t *testing.T) {
	rec := newRecordingSink()
	repl := NewCategory("Replication")
	filter := NewFilteredMetricSink(rec, FilterConfig{IntervalCategories: []*Category{repl}})
	interval := NewInterval("refresh_time", "", repl)

	id := filter.Begin(interval)
	filter.End(id, interval)

	assert.Equal(t, []string{"refresh_time"}, rec.begins)
	assert.Equal(t, []IntervalID{id}, rec.ends)
}
