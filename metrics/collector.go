// Package metrics provides per-run metrics collection for manifest runs.
//
// The Collector accumulates counters during a single append, rebuild, or
// clean run. It is a leaf package with no internal dependencies.
// Canonicalization counts are absorbed once from the build stats at the end
// of a run rather than recorded live, avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Canonicalization (absorbed from build stats at run completion)
	RecordsSeen      int64
	RecordsKept      int64
	RecordsRejected  int64
	RejectedByReason map[string]int64
	OutsideWindow    int64
	Duplicates       int64
	Removed          int64

	// Source scan (rebuild only)
	FilesScanned int64

	// Storage
	StoreReadSuccess  int64
	StoreReadFailure  int64
	StoreWriteSuccess int64
	StoreWriteFailure int64
	VerboseBytes      int64
	GzipBytes         int64

	// Notifications
	PublishSuccess int64
	PublishFailure int64

	// Dimensions (informational, set at construction)
	Mode           string
	StorageBackend string
	RunID          string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	recordsSeen      int64
	recordsKept      int64
	rejectedByReason map[string]int64
	outsideWindow    int64
	duplicates       int64

	filesScanned int64

	storeReadSuccess  int64
	storeReadFailure  int64
	storeWriteSuccess int64
	storeWriteFailure int64
	verboseBytes      int64
	gzipBytes         int64

	publishSuccess int64
	publishFailure int64

	mode           string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(mode, storageBackend, runID string) *Collector {
	return &Collector{
		rejectedByReason: make(map[string]int64),
		mode:             mode,
		storageBackend:   storageBackend,
		runID:            runID,
	}
}

// --- Canonicalization ---

// IncRejected records one rejected frame record.
func (c *Collector) IncRejected(reason string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rejectedByReason[reason]++
	c.mu.Unlock()
}

// AbsorbBuildStats copies canonicalization counters into the collector.
// Called once per run with the final build stats.
func (c *Collector) AbsorbBuildStats(seen, kept, outsideWindow, duplicates int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsSeen = seen
	c.recordsKept = kept
	c.outsideWindow = outsideWindow
	c.duplicates = duplicates
	c.mu.Unlock()
}

// IncFilesScanned records one image file found during a rebuild scan.
func (c *Collector) IncFilesScanned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesScanned++
	c.mu.Unlock()
}

// --- Storage ---
// Store counters are per-call. A manifest pair write counts as two writes.

// IncStoreReadSuccess records a successful store read.
func (c *Collector) IncStoreReadSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeReadSuccess++
	c.mu.Unlock()
}

// IncStoreReadFailure records a failed store read, including not-found.
func (c *Collector) IncStoreReadFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeReadFailure++
	c.mu.Unlock()
}

// IncStoreWriteSuccess records a successful store write.
func (c *Collector) IncStoreWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteSuccess++
	c.mu.Unlock()
}

// IncStoreWriteFailure records a failed store write.
func (c *Collector) IncStoreWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteFailure++
	c.mu.Unlock()
}

// SetPersisted records the encoded sizes of the persisted manifest pair.
func (c *Collector) SetPersisted(verboseBytes, gzipBytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.verboseBytes = verboseBytes
	c.gzipBytes = gzipBytes
	c.mu.Unlock()
}

// --- Notifications ---

// IncPublishSuccess records a delivered manifest notification.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a failed manifest notification.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var rejected int64
	byReason := make(map[string]int64, len(c.rejectedByReason))
	for k, v := range c.rejectedByReason {
		byReason[k] = v
		rejected += v
	}

	return Snapshot{
		RecordsSeen:      c.recordsSeen,
		RecordsKept:      c.recordsKept,
		RecordsRejected:  rejected,
		RejectedByReason: byReason,
		OutsideWindow:    c.outsideWindow,
		Duplicates:       c.duplicates,
		Removed:          c.recordsSeen - c.recordsKept,

		FilesScanned: c.filesScanned,

		StoreReadSuccess:  c.storeReadSuccess,
		StoreReadFailure:  c.storeReadFailure,
		StoreWriteSuccess: c.storeWriteSuccess,
		StoreWriteFailure: c.storeWriteFailure,
		VerboseBytes:      c.verboseBytes,
		GzipBytes:         c.gzipBytes,

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		Mode:           c.mode,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
	}
}
