package archive

import "time"

// WriterConfig contains configuration for the event journal writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the input channel capacity.
	BufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
		BufferSize:    10000,
	}
}

// WriterMetrics counts journal activity.
type WriterMetrics struct {
	Inserts int64
	Flushes int64
	Errors  int64
}

// eventRow represents a row to be inserted into the task_events table.
type eventRow struct {
	RunID      string
	GameID     string
	EventType  string
	ReceivedAt int64 // Microseconds
	Payload    []byte
}
