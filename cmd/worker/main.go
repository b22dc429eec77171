// The render worker runs one job per invocation: it reads the payload
// from PAYLOAD_B64, renders and uploads, prints {"ok": true} on stdout
// and exits 0. All diagnostics go to stderr; any failure exits 1.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"looprender/internal/config"
	"looprender/internal/pkg/logger"
	"looprender/internal/render"
	"looprender/internal/renderjob"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadWorker()
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      os.Stderr,
		ServiceName: "looprender-worker",
	})

	payload, err := renderjob.DecodeBase64(os.Getenv("PAYLOAD_B64"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid PAYLOAD_B64: %v\n", err)
		os.Exit(1)
	}

	pipeline := render.NewPipeline(cfg, log)
	if err := pipeline.Run(context.Background(), payload); err != nil {
		log.WithJobID(payload.JobID).Error("render failed", "error", err.Error())
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(`{"ok": true}`)
}
