package module

// CacheMetrics reports on the engine's projected-state cache.
type CacheMetrics interface {
	// CacheEntries records the total number of cached projections.
	CacheEntries(resource string, entries uint)
	// CacheHit records one cache hit.
	CacheHit(resource string)
	// CacheMiss records one cache miss.
	CacheMiss(resource string)
}

// RegisterStoreMetrics reports on the register storage engine.
type RegisterStoreMetrics interface {
	CacheMetrics

	// OpAppended records one op persisted to a register log.
	OpAppended(opType string, sizeBytes int)
	// OpDropped records one op discarded during replication import.
	OpDropped(reason string)
	// RegisterRemoved records the physical deletion of a register log.
	RegisterRemoved()
	// BytesUsed records the logical bytes currently held on disk.
	BytesUsed(n int64)
}
