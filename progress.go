package tarcat

// ProgressEvent represents a progress update during counting or streaming.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Archive is the source archive being processed.
	Archive string

	// Path is the entry currently being handled, if applicable.
	Path string

	// EntriesDone is the number of entries handled so far in this
	// stage, cumulative across archives. While streaming it includes
	// entries the filter rejected; the pre-pass total counts those too.
	EntriesDone int

	// Bytes is the content bytes written so far. Always zero while
	// counting.
	Bytes uint64
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageCounting indicates the pre-pass that sizes the stream.
	StageCounting ProgressStage = iota

	// StageStreaming indicates entries are being written to the output.
	StageStreaming
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageCounting:
		return "counting"
	case StageStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Calls are strictly sequential; implementations need not be safe for
// concurrent use.
type ProgressFunc func(ProgressEvent)
