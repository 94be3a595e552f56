package artifact

// ProgressEvent reports cumulative transfer progress for one entry or
// stream.
type ProgressEvent struct {
	// Path is the entry or locator being transferred, when known.
	Path string

	// Bytes is the cumulative byte count transferred so far.
	Bytes int64

	// Total is the expected total byte count, or 0 when unknown.
	Total int64
}

// ProgressFunc receives progress events. It must not retain the event
// beyond the call.
type ProgressFunc func(ProgressEvent)
