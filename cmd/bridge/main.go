package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/config"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/logging"
	"github.com/danielpatrickdp/neural-bridge/internal/transport"
)

// #region main
func main() {
	envfile := flag.String("env", ".env", "optional .env file overlaid onto the environment")
	flag.Parse()

	cfg, err := config.LoadFrom(*envfile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// The log file is closed on every exit path, including startup failures
	w := config.OpenLog(cfg)
	if w != nil {
		log.SetOutput(w)
	}
	err = run(cfg)
	if err != nil {
		log.Printf("fatal: %v", err)
	}
	if w != nil {
		w.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(cfg config.Config) error {
	logger := log.Default()

	// Open corpus artifact
	store, err := anchors.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var version string
	provider := anchors.NewProvider(func() (*anchors.Corpus, error) {
		c, v, err := store.Load()
		version = v
		return c, err
	})
	corpus, err := provider.Corpus()
	if err != nil {
		return fmt.Errorf("load corpus from %s (run build-corpus first): %w", cfg.DBPath, err)
	}

	if err := logging.Migrate(store.DB()); err != nil {
		return fmt.Errorf("migrate verdict log: %w", err)
	}

	// Backend is chosen once for the process lifetime
	backend, err := compute.Select(cfg.BackendKind(), logger)
	if err != nil {
		return fmt.Errorf("select backend: %w", err)
	}

	engine := bridge.New(corpus, backend, cfg.BridgeConfig())
	srv := transport.NewServer(engine, gate.NewGate(cfg.GateConfig()), transport.ServerConfig{
		VerdictDB:     store.DB(),
		CorpusVersion: version,
		Logger:        logger,
	})

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	gs := grpc.NewServer()
	transport.RegisterBridgeServer(gs, srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Println("shutting down...")
		gs.GracefulStop()
	}()

	fmt.Println("Neural Bridge ready.")
	fmt.Printf("  DB: %s | Corpus: %s | Anchors: %d | D: %d\n", cfg.DBPath, shortID(version), len(corpus.All()), corpus.Dimension())
	fmt.Printf("  Backend: %s | Listen: %s\n", backend.Name(), cfg.Listen)

	if err := gs.Serve(lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// #endregion run

// #region helpers
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
