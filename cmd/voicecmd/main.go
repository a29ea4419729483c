package main

import (
	"flag"

	"github.com/asticode/go-astilog"
	"github.com/asticode/go-astitools/config"
	"github.com/asticode/go-astitools/worker"
	"github.com/voicecmd/voicecmd/server"
	"github.com/voicecmd/voicecmd/speech"
	"github.com/voicecmd/voicecmd/speech/deepspeech"
)

// Flags
var (
	addr       = flag.String("a", "", "the listen addr")
	configPath = flag.String("c", "", "the config path")
	modelPath  = flag.String("m", "", "the speech model path")
)

func main() {
	// Parse flags
	flag.Parse()
	astilog.FlagInit()

	// Create configuration
	c := newConfiguration()

	// Create engine
	var e speech.Engine
	d := deepspeech.New(c.DeepSpeech)
	defer d.Close()
	if d.Available() {
		e = d
	} else {
		astilog.Warn("main: no speech model available, running in degraded mode")
		e = speech.NewDummy()
	}

	// Create worker
	w := astiworker.NewWorker()

	// Handle signals
	w.HandleSignals()

	// Create server
	s := server.New(e, w, c.Server)

	// Serve
	s.Serve()

	// Wait
	w.Wait()
}

// Configuration represents a configuration
type Configuration struct {
	DeepSpeech deepspeech.Options `toml:"deepspeech"`
	Server     server.Options     `toml:"server"`
}

// newConfiguration creates a new configuration
func newConfiguration() *Configuration {
	// Global config
	gc := &Configuration{
		DeepSpeech: deepspeech.Options{
			AlphabetPath: "models/alphabet.txt",
			BeamWidth:    1024,
			LMPath:       "models/lm.binary",
			ModelPath:    "models/output_graph.pb",
			TriePath:     "models/trie",
		},
		Server: server.Options{
			Addr:          "0.0.0.0:8765",
			ResourcesPath: "static",
		},
	}

	// Flag config
	fc := &Configuration{
		DeepSpeech: deepspeech.Options{
			ModelPath: *modelPath,
		},
		Server: server.Options{
			Addr: *addr,
		},
	}

	// Build configuration
	c, err := asticonfig.New(gc, *configPath, fc)
	if err != nil {
		astilog.Fatal(err)
	}
	return c.(*Configuration)
}
