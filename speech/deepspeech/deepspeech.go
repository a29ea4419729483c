package deepspeech

import (
	"os"
	"sync"

	"github.com/asticode/go-astideepspeech"
	"github.com/asticode/go-astilog"
	"github.com/pkg/errors"

	"github.com/voicecmd/voicecmd/speech"
)

// Deepspeech constants
const (
	deepSpeechSampleRate = 16000
)

// DeepSpeech wraps a shared speech model. Sessions get exclusive transcribers
// that decode their own rolling window against it.
type DeepSpeech struct {
	m  *astideepspeech.Model
	mm *sync.Mutex // Locks m
	o  Options
}

type Options struct {
	AlphabetPath         string  `toml:"alphabet_path"`
	BeamWidth            int     `toml:"beam_width"`
	LMPath               string  `toml:"lm_path"`
	LMWeight             float64 `toml:"lm_weight"`
	ModelPath            string  `toml:"model_path"`
	NCep                 int     `toml:"ncep"`
	NContext             int     `toml:"ncontext"`
	TriePath             string  `toml:"trie_path"`
	ValidWordCountWeight float64 `toml:"valid_word_count_weight"`
}

// New creates a new deepspeech engine. When the model artifact is missing no
// model is loaded and the engine reports itself unavailable so that callers
// can fall back to a degraded mode instead of crashing.
func New(o Options) (d *DeepSpeech) {
	// Create deepspeech
	d = &DeepSpeech{
		mm: &sync.Mutex{},
		o:  o,
	}

	// Only do the following if the model path exists
	if _, err := os.Stat(d.o.ModelPath); err != nil {
		astilog.Warnf("deepspeech: %s doesn't exist, skipping model creation", d.o.ModelPath)
		return
	}

	// Create model
	d.m = astideepspeech.New(o.ModelPath, o.NCep, o.NContext, o.AlphabetPath, o.BeamWidth)

	// Enable LM
	if o.LMPath != "" {
		d.m.EnableDecoderWithLM(o.AlphabetPath, o.LMPath, o.TriePath, o.LMWeight, o.ValidWordCountWeight)
	}
	return
}

// Available reports whether the model was loaded
func (d *DeepSpeech) Available() bool {
	return d.m != nil
}

// Close closes the model
func (d *DeepSpeech) Close() {
	if d.m != nil {
		astilog.Debug("deepspeech: closing model")
		if err := d.m.Close(); err != nil {
			astilog.Error(errors.Wrap(err, "deepspeech: closing model failed"))
		}
	}
}

// NewTranscriber creates a new transcriber bound to the shared model
func (d *DeepSpeech) NewTranscriber() (speech.Transcriber, error) {
	if d.m == nil {
		return nil, errors.New("deepspeech: no model")
	}
	return &transcriber{d: d}, nil
}

type transcriber struct {
	d *DeepSpeech
}

// Transcribe decodes the whole window. Every decode is complete with regards
// to the samples it was given, so each result is final for its window.
func (t *transcriber) Transcribe(ss []int16) (r speech.Result, err error) {
	// The model's decoder is not safe for concurrent use
	t.d.mm.Lock()
	r.Text = t.d.m.SpeechToText(ss, uint(len(ss)), deepSpeechSampleRate)
	t.d.mm.Unlock()
	r.Final = true
	return
}

func (t *transcriber) Close() error { return nil }
