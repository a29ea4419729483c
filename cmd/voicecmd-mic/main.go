package main

import (
	"encoding/binary"
	"flag"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/worker"
	"github.com/pkg/errors"
	"github.com/voicecmd/voicecmd/audio"
	"github.com/voicecmd/voicecmd/command"
	"github.com/voicecmd/voicecmd/portaudio"
	"github.com/voicecmd/voicecmd/speech"
	"github.com/voicecmd/voicecmd/speech/deepspeech"
)

// Flags
var (
	modelPath = flag.String("m", "models/output_graph.pb", "the speech model path")
)

const (
	bufferLength         = 1600
	minTranscribeSamples = 1600
	sampleRate           = 16000
)

func main() {
	// Parse flags
	flag.Parse()
	astilog.FlagInit()

	// Run
	if err := run(); err != nil {
		astilog.Fatal(errors.Wrap(err, "main: running failed"))
	}
}

func run() (err error) {
	// Create engine
	var e speech.Engine
	d := deepspeech.New(deepspeech.Options{
		AlphabetPath: "models/alphabet.txt",
		BeamWidth:    1024,
		LMPath:       "models/lm.binary",
		ModelPath:    *modelPath,
		TriePath:     "models/trie",
	})
	defer d.Close()
	if d.Available() {
		e = d
	} else {
		astilog.Warn("main: no speech model available, running in degraded mode")
		e = speech.NewDummy()
	}

	// Create transcriber
	t, err := e.NewTranscriber()
	if err != nil {
		err = errors.Wrap(err, "main: creating transcriber failed")
		return
	}
	defer t.Close()

	// Initialize portaudio
	if err = portaudio.Initialize(); err != nil {
		err = errors.Wrap(err, "main: initializing portaudio failed")
		return
	}
	defer portaudio.Terminate()

	// Open default stream
	s, err := portaudio.NewDefaultStream(portaudio.StreamOptions{
		BufferLength:     bufferLength,
		NumInputChannels: 1,
		SampleRate:       sampleRate,
	})
	if err != nil {
		err = errors.Wrap(err, "main: opening default stream failed")
		return
	}
	defer s.Close()

	// Start stream
	if err = s.Start(); err != nil {
		err = errors.Wrap(err, "main: starting stream failed")
		return
	}
	defer s.Stop()

	// Create buffer and detector
	b := audio.NewBuffer(audio.BufferOptions{SampleRate: sampleRate})
	dt := command.NewDetector(command.DetectorOptions{})

	// Create worker
	w := astiworker.NewWorker()

	// Handle signals
	w.HandleSignals()

	// Listen
	astilog.Info("main: listening, say \"play\" or \"pause\"")
	for {
		// Check context
		if w.Context().Err() != nil {
			return
		}

		// Read samples
		var ss []int16
		if ss, err = s.Read(); err != nil {
			err = errors.Wrap(err, "main: reading samples failed")
			return
		}

		// Ingest
		buffered, ok := b.Ingest(frameBytes(ss))
		if !ok || len(buffered) < minTranscribeSamples {
			continue
		}

		// Transcribe
		var r speech.Result
		if r, err = t.Transcribe(buffered); err != nil {
			astilog.Error(errors.Wrap(err, "main: transcribing failed"))
			err = nil
			continue
		}

		// No text
		if r.Text == "" {
			continue
		}

		// Log
		astilog.Infof("main: transcribed %q", r.Text)

		// Detect command
		if c, ok := dt.Process(r.Text); ok {
			astilog.Infof("main: detected command %q", c)
		}
	}
}

// frameBytes encodes samples as little endian 16-bit PCM
func frameBytes(ss []int16) (b []byte) {
	b = make([]byte, len(ss)*2)
	for idx, s := range ss {
		binary.LittleEndian.PutUint16(b[idx*2:], uint16(s))
	}
	return
}
