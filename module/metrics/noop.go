package metrics

// NoopCollector discards all metrics. Used in tests and by hosts that do
// not expose a metrics endpoint.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) CacheEntries(resource string, entries uint) {}
func (nc *NoopCollector) CacheHit(resource string)                   {}
func (nc *NoopCollector) CacheMiss(resource string)                  {}
func (nc *NoopCollector) OpAppended(opType string, sizeBytes int)    {}
func (nc *NoopCollector) OpDropped(reason string)                    {}
func (nc *NoopCollector) RegisterRemoved()                           {}
func (nc *NoopCollector) BytesUsed(n int64)                          {}
