package speech

// Dummy is a degraded-mode engine used when no speech model is available.
// Its transcribers answer deterministically without invoking any external
// resource: scripted results are returned in order, then empty results.
type Dummy struct {
	rs []Result
}

// NewDummy creates a new dummy engine
func NewDummy(rs ...Result) *Dummy {
	return &Dummy{rs: rs}
}

// NewTranscriber creates a new transcriber with its own position in the
// script
func (d *Dummy) NewTranscriber() (Transcriber, error) {
	return &dummyTranscriber{rs: d.rs}, nil
}

type dummyTranscriber struct {
	i  int
	rs []Result
}

func (t *dummyTranscriber) Transcribe(ss []int16) (r Result, err error) {
	if t.i < len(t.rs) {
		r = t.rs[t.i]
		t.i++
	}
	return
}

func (t *dummyTranscriber) Close() error { return nil }
