// Stallcam - hands-free market-stall listing agent.
// Streams camera and microphone to a multimodal AI session and turns
// seller conversation into marketplace listings.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/stallworks/go-stallcam/pkg/app"
	"github.com/stallworks/go-stallcam/pkg/audioio"
	"github.com/stallworks/go-stallcam/pkg/camera"
)

func main() {
	cfg := parseFlags()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	if err := a.Init(); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	model := flag.String("model", "", "Model name override")
	voice := flag.String("voice", "", "Synthesized voice name override")
	cameraBackend := flag.String("camera", string(cfg.CameraBackend), "Camera backend: webrtc, mock")
	signalling := flag.String("signalling", "", "Signalling server URL for the webrtc camera")
	producer := flag.String("producer", "", "Camera producer name on the signalling server")
	audioBackend := flag.String("audio", string(cfg.AudioBackend), "Audio backend: auto, ffmpeg, mock")
	micDevice := flag.String("mic", "", "Microphone device name")
	speakerDevice := flag.String("speaker", "", "Speaker device name")
	port := flag.String("port", cfg.WebPort, "Web dashboard port")
	pipelineURL := flag.String("pipeline", "", "Listing pipeline base URL (overrides STALLCAM_PIPELINE_URL)")
	storePath := flag.String("store", "", "Listing store path (default ~/.stallcam/listings.json)")
	flag.Parse()

	cfg.Debug = *debug
	cfg.Model = *model
	cfg.Voice = *voice
	cfg.CameraBackend = camera.Backend(*cameraBackend)
	cfg.SignallingURL = *signalling
	cfg.ProducerName = *producer
	cfg.AudioBackend = audioio.Backend(*audioBackend)
	cfg.MicDevice = *micDevice
	cfg.SpeakerDevice = *speakerDevice
	cfg.WebPort = *port
	cfg.PipelineURL = *pipelineURL
	cfg.StorePath = *storePath

	return cfg
}
