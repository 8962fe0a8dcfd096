package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"

	"skineffects.io/internal/persistence/archive"
	persistlog "skineffects.io/internal/persistence/log"
	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/tuning"
	"skineffects.io/internal/sim/world"
)

// envConfig holds the SFX_* environment; its values are the flag defaults.
type envConfig struct {
	Addr         string `env:"SFX_ADDR" envDefault:":8080"`
	WorldID      string `env:"SFX_WORLD" envDefault:"main"`
	DataDir      string `env:"SFX_DATA" envDefault:"./data"`
	TuningPath   string `env:"SFX_TUNING" envDefault:"./configs/tuning.yaml"`
	ImportPath   string `env:"SFX_IMPORT"`
	DisableDB    bool   `env:"SFX_DISABLE_DB"`
	IndexBackend string `env:"SFX_INDEX_BACKEND" envDefault:"sqlite"`
	EnableAdmin  string `env:"SFX_ENABLE_ADMIN_HTTP"`
	EnablePprof  bool   `env:"SFX_ENABLE_PPROF_HTTP"`
	DeployEnv    string `env:"DEPLOY_ENV"`
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		logger.Fatalf("parse env: %v", err)
	}

	var (
		addr       = flag.String("addr", ec.Addr, "http listen address")
		worldID    = flag.String("world", ec.WorldID, "world id (names the data directory)")
		dataDir    = flag.String("data", ec.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", ec.TuningPath, "path to tuning.yaml")
		importPath = flag.String("import", ec.ImportPath, "store export to import on startup (optional)")
		disableDB  = flag.Bool("disable_db", ec.DisableDB, "disable the sqlite read-model index")
	)
	flag.Parse()

	sessionDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(sessionDir, 0o755)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	// Optional read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(sessionDir, ec.IndexBackend, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	w, err := world.New(world.WorldConfig{
		ID:          *worldID,
		FrameRateHz: tune.FrameRateHz,
		Session:     tune.Session(),
	}, log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	if p := strings.TrimSpace(*importPath); p != "" {
		snap, err := snapshot.ReadSnapshot(p)
		if err != nil {
			logger.Fatalf("read export: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import export: %v", err)
		}
		logger.Printf("imported store=%s entries=%d", filepath.Base(p), len(snap.Entries))
	}

	frameLog := persistlog.NewFrameLogger(sessionDir)
	transitionLog := persistlog.NewTransitionLogger(sessionDir)
	defer frameLog.Close()
	defer transitionLog.Close()
	if idx != nil {
		w.SetFrameLogger(multiFrameLogger{a: frameLog, b: idx})
		w.SetTransitionLogger(multiTransitionLogger{a: transitionLog, b: idx})
	} else {
		w.SetFrameLogger(frameLog)
		w.SetTransitionLogger(transitionLog)
	}

	enableAdmin := defaultEnableAdminHTTP(ec.DeployEnv)
	if v := strings.TrimSpace(ec.EnableAdmin); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Fatalf("SFX_ENABLE_ADMIN_HTTP: %v", err)
		}
		enableAdmin = b
	}
	mux := newMux(httpDeps{
		World:       w,
		WorldID:     *worldID,
		SessionDir:  sessionDir,
		Index:       idx,
		EnableAdmin: enableAdmin,
		EnablePprof: ec.EnablePprof,
		Logger:      logger,
	})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Day-end archives of the store.
	archiveCh := make(chan snapshot.StoreV1, 4)
	w.SetArchiveSink(archiveCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-archiveCh:
				path, err := archive.ArchiveDayStore(sessionDir, snap)
				if err != nil {
					logger.Printf("archive day store: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordExport(path, snap)
				}
				logger.Printf("archived day=%d frame=%d entries=%d", snap.Day, snap.Header.Frame, len(snap.Entries))
			}
		}
	})
	g.Go(func() error {
		err := w.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Printf("listening on %s session=%s frame_rate=%dHz", *addr, w.SessionID(), tune.FrameRateHz)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	if err := g.Wait(); err != nil {
		logger.Printf("stopped: %v", err)
	}
}

func defaultEnableAdminHTTP(deployEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(deployEnv)) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
