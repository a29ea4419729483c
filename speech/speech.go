package speech

// Result represents a transcription result. An empty text is a valid
// "no result yet" response, not an error.
type Result struct {
	Final bool
	Text  string
}

// Transcriber transcribes cumulative waveform windows to text. It must
// tolerate being called repeatedly with overlapping context. Instances are
// stateful and must be exclusively owned by a single session.
type Transcriber interface {
	Close() error
	Transcribe(ss []int16) (Result, error)
}

// Engine creates one transcriber per session
type Engine interface {
	NewTranscriber() (Transcriber, error)
}
