package observability

// FilteredMetricSink routes only metrics whose category is assignable to one
// of the configured inclusion base categories. Each metric kind carries its
// own inclusion list, so a deployment can keep, say, routing counters while
// dropping query intervals.
//
// For interval metrics the filter returns FilteredIntervalID from Begin when
// the metric is excluded; the matching End and CancelBegin calls short-circuit
// on that sentinel, so the downstream sink never observes a mismatched id.
type FilteredMetricSink struct {
	sink      MetricSink
	counters  []*Category
	amounts   []*Category
	statuses  []*Category
	intervals []*Category
}

// FilterConfig lists the inclusion base categories per metric kind. A nil
// slice excludes every metric of that kind.
type FilterConfig struct {
	CounterCategories  []*Category
	AmountCategories   []*Category
	StatusCategories   []*Category
	IntervalCategories []*Category
}

// IncludeAll builds a config that passes every metric of the given base
// categories through for all four kinds.
func IncludeAll(bases ...*Category) FilterConfig {
	return FilterConfig{
		CounterCategories:  bases,
		AmountCategories:   bases,
		StatusCategories:   bases,
		IntervalCategories: bases,
	}
}

// NewFilteredMetricSink decorates sink with a category inclusion filter.
func NewFilteredMetricSink(sink MetricSink, config FilterConfig) *FilteredMetricSink {
	return &FilteredMetricSink{
		sink:      sink,
		counters:  config.CounterCategories,
		amounts:   config.AmountCategories,
		statuses:  config.StatusCategories,
		intervals: config.IntervalCategories,
	}
}

func included(category *Category, bases []*Category) bool {
	if category == nil {
		return false
	}
	for _, base := range bases {
		if category.IsAssignableTo(base) {
			return true
		}
	}
	return false
}

func (f *FilteredMetricSink) Increment(metric *Metric) {
	if included(metric.Category(), f.counters) {
		f.sink.Increment(metric)
	}
}

func (f *FilteredMetricSink) Add(metric *Metric, amount int64) {
	if included(metric.Category(), f.amounts) {
		f.sink.Add(metric, amount)
	}
}

func (f *FilteredMetricSink) Set(metric *Metric, value int64) {
	if included(metric.Category(), f.statuses) {
		f.sink.Set(metric, value)
	}
}

func (f *FilteredMetricSink) Begin(metric *Metric) IntervalID {
	if included(metric.Category(), f.intervals) {
		return f.sink.Begin(metric)
	}
	return FilteredIntervalID
}

func (f *FilteredMetricSink) End(id IntervalID, metric *Metric) {
	if id == FilteredIntervalID {
		return
	}
	f.sink.End(id, metric)
}

func (f *FilteredMetricSink) CancelBegin(id IntervalID, metric *Metric) {
	if id == FilteredIntervalID {
		return
	}
	f.sink.CancelBegin(id, metric)
}
