package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"jobharvest-engine/internal/browser"
	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/harvest"
	"jobharvest-engine/internal/httpapi"
	"jobharvest-engine/internal/notify"
	"jobharvest-engine/internal/poll"
	"jobharvest-engine/internal/rank"
	"jobharvest-engine/internal/scheduler"
	"jobharvest-engine/internal/scrape"
	"jobharvest-engine/internal/scrape/util"
	"jobharvest-engine/internal/secrets"
	"jobharvest-engine/internal/statestore"
	"jobharvest-engine/internal/submit"
)

func main() {
	// Engine data dir: use env if provided, else local folder.
	dataDir := os.Getenv("HARVEST_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir: two would fight over the same tabs' state.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock data dir: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running with data dir %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	config.LoadEnvFiles(filepath.Join(dataDir, ".env"), ".env")

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return loadConfig(userCfgPath, dataDir)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := statestore.Open(ctx, statestore.Options{
		Backend:  cfg.State.Backend,
		Path:     statePath(cfg, dataDir),
		RedisURL: cfg.State.RedisURL,
		TTL:      time.Duration(cfg.State.TTLHours) * time.Hour,
	})
	if err != nil {
		log.Fatalf("state store: %v", err)
	}
	defer store.Close()

	client, err := submit.New(submit.Options{
		BaseURL:      cfg.Backend.BaseURL,
		APIKey:       cfg.Backend.APIKey,
		APIKeyHeader: cfg.Backend.APIKeyHeader,
		Timeout:      time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		Limiter:      util.NewHostLimiter(cfg.Backend.RatePerSec, cfg.Backend.Burst),
	})
	if err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()
	notifiers := notify.Multi{notify.Log{}, notify.Hub{H: hub}}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
		if err != nil {
			log.Printf("[notify] telegram disabled: %v", err)
		} else {
			defer tg.Close()
			notifiers = append(notifiers, tg)
		}
	}
	if cfg.Notify.RedisChannel != "" && cfg.State.RedisURL != "" {
		rdb, err := statestore.NewRedisClient(ctx, cfg.State.RedisURL)
		if err != nil {
			log.Printf("[notify] redis relay disabled: %v", err)
		} else {
			defer rdb.Close()
			relay := events.NewRelay(rdb, cfg.Notify.RedisChannel)
			notifiers = append(notifiers, notify.Relay{R: relay})
			go func() {
				if err := relay.Forward(ctx, hub); err != nil {
					log.Printf("[events] relay stopped: %v", err)
				}
			}()
		}
	}

	sites := scrape.DefaultRegistry(cfg.Harvest.Sites...)
	eng := harvest.New(harvestConfig(cfg), store, client, sites,
		harvest.WithNotifier(notifiers),
		harvest.WithEnricher(rank.NewSkillTagger(cfg)),
	)
	log.Printf("[engine] sites=%s backend=%s state=%s", strings.Join(sites.Names(), ","), cfg.Backend.BaseURL, cfg.State.Backend)

	mgr, err := browser.Launch(browser.Options{
		Headless:  cfg.Browser.Headless,
		Channel:   cfg.Browser.Channel,
		UserAgent: cfg.Browser.UserAgent,
		Cookies:   browser.LoadCookieDir(config.ResolvePath(dataDir, cfg.Browser.CookiesDir)),
	})
	if err != nil {
		log.Fatalf("browser: %v", err)
	}
	driver := browser.NewDriver(ctx, eng, mgr)
	for _, u := range cfg.Browser.StartURLs {
		if _, err := driver.Open(ctx, u); err != nil {
			log.Printf("[engine] open start url %q: %v", u, err)
		}
	}

	runner := poll.NewRunner(ctx, func(ctx context.Context, s config.Schedule) (string, error) {
		kind, err := harvest.ParseKind(strings.ToLower(s.Workflow))
		if err != nil {
			return "", err
		}
		info, err := driver.OpenAndStart(ctx, s.URL, kind, harvest.StartOptions{DelayMs: s.DelayMs, MaxPages: s.MaxPages})
		return info.ID, err
	}, hub)
	if err := runner.Load(cfg.Schedules); err != nil {
		log.Fatalf("schedules: %v", err)
	}
	runner.Start()

	if sq, ok := store.(*statestore.SQLite); ok {
		go scheduler.Every(ctx, time.Hour, "state-prune", func(ctx context.Context) error {
			n, err := sq.PruneBefore(ctx, time.Now().Add(-stateTTL(cfg)))
			if n > 0 {
				log.Printf("[state-prune] removed=%d", n)
			}
			return err
		})
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	if err := writeTokenFile(filepath.Join(dataDir, "engine.token"), shutdownToken); err != nil {
		log.Printf("[engine] write token file: %v", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Tabs:              driver,
		Hub:               hub,
		Schedules:         runner,
		CheckAvailability: eng.CheckAvailabilityServerSide,
		CfgVal:            &cfgVal,
		UserCfgPath:       userCfgPath,
		LoadCfg:           loadCfg,
		Token:             os.Getenv("HARVEST_CONTROL_TOKEN"),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{ReadHeaderTimeout: 5 * time.Second}
	mux := http.NewServeMux()
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))
	mux.Handle("/", router)
	srv.Handler = mux

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	log.Printf("engine listening on http://%s (config=%s)", addr, userCfgPath)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[engine] serve: %v", err)
		}
	}

	log.Println("[engine] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	runner.Stop()
	driver.CloseAll(shutdownCtx)
	if err := mgr.Close(); err != nil {
		log.Printf("[engine] browser close: %v", err)
	}
	stop()
}

func loadConfig(path, dataDir string) (config.Config, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return cfg, err
	}
	if err := config.OverlaySkills(&cfg, filepath.Join(dataDir, "skills.yml")); err != nil {
		return cfg, fmt.Errorf("skills overlay: %w", err)
	}
	if err := secrets.Resolve(&cfg); err != nil {
		log.Printf("[config] keyring: %v", err)
	}
	cfg, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !vr.OK() {
		return cfg, errors.New(strings.Join(vr.Errors, "; "))
	}
	return cfg, nil
}
