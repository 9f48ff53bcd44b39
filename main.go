package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sortacle/sortacle/internal/actuator"
	"github.com/sortacle/sortacle/internal/api"
	"github.com/sortacle/sortacle/internal/camera"
	"github.com/sortacle/sortacle/internal/classify"
	"github.com/sortacle/sortacle/internal/config"
	"github.com/sortacle/sortacle/internal/events"
	"github.com/sortacle/sortacle/internal/pipeline"
	"github.com/sortacle/sortacle/internal/status"
	"github.com/sortacle/sortacle/internal/version"
	"github.com/sortacle/sortacle/internal/waste"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode with a fixture camera and mock actuator")
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to a sorter config JSON file (optional)")
	dbFile      = flag.String("db", "disposal_events.db", "Path to the SQLite event database")
	serialPath  = flag.String("serial", "/dev/ttyACM0", "Serial device for the servo controller")
	fixturesDir = flag.String("fixtures", "fixtures", "Directory of JPEG frames for the dev camera")
)

func main() {
	flag.Parse()
	log.Printf("sortacle %s", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// A bad label table or config file is unrecoverable, so both are
	// checked before any hardware is opened.
	if err := waste.ValidateCategoryTable(); err != nil {
		log.Fatalf("invalid category table: %v", err)
	}

	cfg := config.EmptySorterConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadSorterConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	// All collaborators are constructed here and handed to the pipeline;
	// nothing below discovers hardware on its own.
	var cam camera.FrameSource
	var driver actuator.Driver
	if *devMode {
		fixtures, err := camera.NewFixtureCamera(*fixturesDir)
		if err != nil {
			log.Fatalf("failed to open fixture camera: %v", err)
		}
		cam = fixtures
		driver = actuator.NewMockDriver()
	} else {
		var err error
		driver, err = actuator.NewSerialDriver(*serialPath)
		if err != nil {
			log.Fatalf("failed to open servo controller: %v", err)
		}
		if url := cfg.GetCameraURL(); url != "" {
			cam = camera.NewHTTPCamera(url, cfg.GetCaptureInterval()*4)
		} else {
			fixtures, err := camera.NewFixtureCamera(*fixturesDir)
			if err != nil {
				log.Fatalf("failed to open camera: %v", err)
			}
			cam = fixtures
		}
	}
	defer driver.Close()

	store, err := events.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("failed to open event database: %v", err)
	}
	defer store.Close()

	hub := status.NewHub()
	controller := actuator.NewController(driver, hub, cfg.ActuatorConfig())
	classifier := classify.NewHTTPClassifier(cfg.GetInferenceURL(), cfg.GetClassifyTimeout())

	orch, err := pipeline.New(cfg.PipelineConfig(), pipeline.Deps{
		Camera:     cam,
		Classifier: classifier,
		Actuator:   controller,
		Recorder:   store,
		Hub:        hub,
	})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the sorting pipeline; it centers the actuator and releases the
	// camera on its way out
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
		log.Print("pipeline routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		if err := store.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}

		apiServer := api.NewServer(hub, store, orch.Metrics, cfg.GetBinID())
		mux.Handle("/", api.LoggingMiddleware(apiServer.ServeMux()))

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
