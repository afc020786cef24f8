// Command shotline ingests measurements from a cave-surveying rangefinder
// over a serial link and classifies them into splay and survey shots.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/speleodata/shotline/internal/classify"
	"github.com/speleodata/shotline/internal/config"
	"github.com/speleodata/shotline/internal/devicemux"
	"github.com/speleodata/shotline/internal/pipeline"
	"github.com/speleodata/shotline/internal/protocol"
	"github.com/speleodata/shotline/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to JSON config file")
	devicePath    = flag.String("device", "", "Serial port path (overrides config)")
	listen        = flag.String("listen", "", "Debug HTTP listen address (overrides config)")
	devMode       = flag.Bool("dev", false, "Replay scripted frames instead of opening a serial port")
	disableDevice = flag.Bool("disable-device", false, "Run without any device (status API only)")
)

// devScript is the frame sequence replayed in -dev mode: a splay, then a
// triple-repeated leg.
func devScript() []byte {
	var script []byte
	readings := []struct {
		dist, az, inc float64
	}{
		{4.20, 310.0, -12.0},
		{10.00, 45.0, 5.0},
		{10.02, 45.1, 5.0},
		{10.01, 45.0, 4.9},
	}
	seq := false
	for _, r := range readings {
		script = append(script, protocol.EncodeMeasurementFrame(seq, r.dist, r.az, r.inc)...)
		seq = !seq
	}
	return script
}

func main() {
	flag.Parse()
	log.Printf("shotline %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *devicePath != "" {
		cfg.DevicePath = *devicePath
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	var mux devicemux.Interface
	switch {
	case *disableDevice:
		mux = devicemux.NewDisabled()
	case *devMode:
		mux = devicemux.NewScripted(devScript(), 500*time.Millisecond)
	default:
		var err error
		mux, err = devicemux.NewReal(cfg.DevicePath, cfg.Port)
		if err != nil {
			log.Fatalf("failed to open device port %s: %v", cfg.DevicePath, err)
		}
	}
	defer mux.Close()

	opts := []pipeline.Option{}
	if cfg.AutoAckEnabled() && !*devMode {
		opts = append(opts, pipeline.WithAutoAck())
	}
	session := pipeline.NewSession(mux, opts...)
	session.OnShotDetected(func(shot *classify.DetectedShot) {
		log.Printf("shot: type=%s distance=%.3fm azimuth=%.2f° inclination=%.2f° readings=%d",
			shot.Type, shot.Distance, shot.Azimuth, shot.Inclination, len(shot.Constituents))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Serial I/O owner: reads frames from the port.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("device monitor stopped: %v", err)
		}
	}()

	// Ingest pipeline: decode, dedup, classify.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("session stopped: %v", err)
		}
	}()

	httpMux := http.NewServeMux()
	attachAPIRoutes(httpMux, session)
	mux.AttachAdminRoutes(httpMux)

	server := &http.Server{Addr: cfg.Listen, Handler: httpMux}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("debug HTTP on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// End of session: anything still pending goes out as splays.
	for _, shot := range session.Flush() {
		log.Printf("flushed pending splay: distance=%.3fm azimuth=%.2f°", shot.Distance, shot.Azimuth)
	}

	mux.Close()
	wg.Wait()
}
