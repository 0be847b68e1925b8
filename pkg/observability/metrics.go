// Package observability defines the metric model used throughout the service
// and the sinks metrics are routed to. Metrics are nominal values with a small
// kind enum rather than a type hierarchy; filtering works on category tags.
package observability

// MetricKind discriminates the four metric shapes the sinks understand.
type MetricKind int

const (
	// KindCounter is a monotonically incremented occurrence count.
	KindCounter MetricKind = iota
	// KindAmount accumulates an arbitrary quantity per occurrence.
	KindAmount
	// KindStatus reports a point-in-time level.
	KindStatus
	// KindInterval measures the elapsed time of a bracketed operation.
	KindInterval
)

func (k MetricKind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindAmount:
		return "amount"
	case KindStatus:
		return "status"
	case KindInterval:
		return "interval"
	default:
		return "unknown"
	}
}

// Category tags a metric for inclusion filtering. Categories form a tree via
// the parent pointer; a metric tagged with a child category is assignable to
// every ancestor.
type Category struct {
	name   string
	parent *Category
}

// NewCategory creates a root category.
func NewCategory(name string) *Category {
	return &Category{name: name}
}

// SubCategory creates a child category of c.
func (c *Category) SubCategory(name string) *Category {
	return &Category{name: name, parent: c}
}

// Name returns the category name.
func (c *Category) Name() string { return c.name }

// IsAssignableTo reports whether c equals base or descends from it.
func (c *Category) IsAssignableTo(base *Category) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == base {
			return true
		}
	}
	return false
}

// Base categories shared by the core components. Components hang their own
// subcategories off these.
var (
	CategoryQuery       = NewCategory("Query")
	CategoryEvent       = NewCategory("Event")
	CategoryReplication = NewCategory("Replication")
	CategoryRouting     = NewCategory("Routing")
)

// Metric is a named, categorised measurement definition.
type Metric struct {
	name        string
	description string
	kind        MetricKind
	category    *Category
}

func (m *Metric) Name() string        { return m.name }
func (m *Metric) Description() string { return m.description }
func (m *Metric) Kind() MetricKind    { return m.kind }
func (m *Metric) Category() *Category { return m.category }

// NewCounter defines a counter metric.
func NewCounter(name, description string, category *Category) *Metric {
	return &Metric{name: name, description: description, kind: KindCounter, category: category}
}

// NewAmount defines an amount metric.
func NewAmount(name, description string, category *Category) *Metric {
	return &Metric{name: name, description: description, kind: KindAmount, category: category}
}

// NewStatus defines a status metric.
func NewStatus(name, description string, category *Category) *Metric {
	return &Metric{name: name, description: description, kind: KindStatus, category: category}
}

// NewInterval defines an interval metric.
func NewInterval(name, description string, category *Category) *Metric {
	return &Metric{name: name, description: description, kind: KindInterval, category: category}
}

// IntervalID correlates a Begin call with its matching End or CancelBegin.
type IntervalID int64

// FilteredIntervalID is the sentinel returned by filtering sinks for interval
// metrics that are excluded. Passing it to End or CancelBegin is always a
// no-op, so callers never need to know whether their metric was filtered.
const FilteredIntervalID IntervalID = -1

// MetricSink receives metric occurrences.
type MetricSink interface {
	// Increment records one occurrence of a counter metric.
	Increment(metric *Metric)
	// Add accumulates amount onto an amount metric.
	Add(metric *Metric, amount int64)
	// Set reports the current level of a status metric.
	Set(metric *Metric, value int64)
	// Begin starts timing an interval metric and returns the id to close it.
	Begin(metric *Metric) IntervalID
	// End completes the interval started under id.
	End(id IntervalID, metric *Metric)
	// CancelBegin abandons the interval started under id without recording it.
	CancelBegin(id IntervalID, metric *Metric)
}

// NullMetricSink discards everything. Used when metrics are disabled and as
// the default in tests.
type NullMetricSink struct{}

func (NullMetricSink) Increment(*Metric)                 {}
func (NullMetricSink) Add(*Metric, int64)                {}
func (NullMetricSink) Set(*Metric, int64)                {}
func (NullMetricSink) Begin(*Metric) IntervalID          { return FilteredIntervalID }
func (NullMetricSink) End(IntervalID, *Metric)           {}
func (NullMetricSink) CancelBegin(IntervalID, *Metric)   {}
