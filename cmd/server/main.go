package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"wirecraft.ai/internal/persistence/indexdb"
	persistlog "wirecraft.ai/internal/persistence/log"
	"wirecraft.ai/internal/persistence/snapshot"
	"wirecraft.ai/internal/protocol"
	"wirecraft.ai/internal/sim/catalogs"
	"wirecraft.ai/internal/sim/tuning"
	"wirecraft.ai/internal/sim/world"
	"wirecraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)
	snapDir := filepath.Join(worldDir, "snapshots")

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index db: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		p, err := snapshot.Latest(snapDir)
		if err != nil {
			logger.Fatalf("scan snapshots: %v", err)
		}
		snapshotToLoad = p
	}

	cfg := world.WorldConfig{
		ID:          *worldID,
		TickRateHz:  tune.TickRateHz,
		Seed:        *seed,
		BoundaryR:   tune.WorldBoundaryR,
		LogicBudget: tune.LogicBudget,
	}

	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		cfg.Seed = snap.Seed
		w, err = world.New(cfg, cats)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		st, err := snap.ToState()
		if err != nil {
			logger.Fatalf("decode snapshot: %v", err)
		}
		if err := w.RestoreState(st); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		w, err = world.New(cfg, cats)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldParams: protocol.WorldParams{
			WorldID:    *worldID,
			TickRateHz: tune.TickRateHz,
			BoundaryR:  tune.WorldBoundaryR,
			Seed:       cfg.Seed,
		},
		Catalogs: protocol.CatalogInfo{
			BlockPaletteDigest: cats.Blocks.PaletteDigest,
			LogicDigest:        cats.Logic.Digest,
			BlockCount:         len(cats.Blocks.Palette),
		},
	}
	wsrv := ws.NewServer(welcome, logger)

	loop := &worldLoop{
		world:    w,
		cats:     cats,
		ws:       wsrv,
		tickLog:  tickLog,
		idx:      idx,
		logger:   logger,
		snapDir:  snapDir,
		snapEach: uint64(tune.SnapshotEveryTicks),
		seed:     cfg.Seed,
		tickRate: tune.TickRateHz,
		boundary: tune.WorldBoundaryR,
	}
	go loop.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st := loop.Status()
		fmt.Fprintf(rw, "# HELP wirecraft_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE wirecraft_world_tick gauge\n")
		fmt.Fprintf(rw, "wirecraft_world_tick{world=%q} %d\n", *worldID, st.Tick)

		fmt.Fprintf(rw, "# HELP wirecraft_world_groups Live logic group count.\n")
		fmt.Fprintf(rw, "# TYPE wirecraft_world_groups gauge\n")
		fmt.Fprintf(rw, "wirecraft_world_groups{world=%q} %d\n", *worldID, st.Groups)

		fmt.Fprintf(rw, "# HELP wirecraft_world_observers Connected observer count.\n")
		fmt.Fprintf(rw, "# TYPE wirecraft_world_observers gauge\n")
		fmt.Fprintf(rw, "wirecraft_world_observers{world=%q} %d\n", *worldID, wsrv.ConnCount())
	})
	mux.HandleFunc("/v1/ws", wsrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
