package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"evasive-gateway/middleware/evasive"
	"evasive-gateway/middleware/evasive/application"
	"evasive-gateway/middleware/evasive/domain"
	"evasive-gateway/middleware/evasive/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy error: %v", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	var rdb *redis.Client
	if cfg.redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	// whitelist de URIs: padrão que não compila é logado e descartado
	uriWhitelist := infra.NewURIWhitelist()
	for _, pattern := range cfg.whitelistURIs {
		if err := uriWhitelist.Add(pattern); err != nil {
			log.Printf("ignoring DOS_WHITELIST_URI pattern %q: %v", pattern, err)
		}
	}

	// sentinela de "já notificado": Redis quando disponível (dedup sobrevive
	// a restart, como o marcador em disco do mod_evasive), senão memória
	var notified domain.NotifiedStore
	if rdb != nil {
		notified = infra.NewRedisNotifiedStore(rdb, infra.WithNotifiedTTL(cfg.notifiedTTL))
	} else {
		notified = infra.NewMemoryNotifiedStore(infra.WithMemoryNotifiedTTL(cfg.notifiedTTL))
	}

	store := infra.NewHitStore(cfg.settings.HashTableSize, infra.WithMaxEntries(cfg.maxEntries))
	svc := application.NewService(store, cfg.settings,
		application.WithURIWhitelist(uriWhitelist),
		application.WithNotifiedStore(notified),
	)
	for _, ip := range cfg.whitelistIPs {
		svc.AddWhitelist(ip)
	}

	notifier := infra.NewBlockNotifier(
		infra.WithLogDir(cfg.logDir),
		infra.WithMailTo(cfg.emailNotify),
		infra.WithSystemCommand(cfg.systemCommand),
	)

	var statsStore domain.StatsStore
	if cfg.statsEnabled {
		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	h := http.Handler(proxy)
	h = evasive.Middleware(evasive.Options{
		Service:              svc,
		Stats:                statsStore,
		Notifier:             notifier,
		KeyHeader:            cfg.keyHeader,
		TrustXForwardedFor:   cfg.trustXFF,
		AddDiagnosticHeaders: cfg.addHeaders,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		// após o drain das requisições em voo é seguro descartar os contadores
		store.Reset()
	}()

	s := svc.Settings()
	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("evasive: enabled=%v table=%d page=%d/%s site=%d/%s hold=%s reply=%d",
		s.Enabled, store.Size(), s.PageCount, s.PageInterval, s.SiteCount, s.SiteInterval, s.BlockingPeriod, s.HTTPReply)
	log.Printf("evasive: whitelist ips=%d uris=%d logDir=%q email=%q command=%q",
		len(cfg.whitelistIPs), uriWhitelist.Len(), cfg.logDir, cfg.emailNotify, cfg.systemCommand)
	log.Printf("evasive: redis=%q stats=%v bucket=%q ttl=%s trackKeys=%v",
		cfg.redisAddr, cfg.statsEnabled, cfg.statsBucket, cfg.statsTTL, cfg.statsTrackKeys)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr  string
	upstreamURL string

	settings      domain.Settings
	maxEntries    int
	whitelistIPs  []string
	whitelistURIs []string

	keyHeader  string
	trustXFF   bool
	addHeaders bool

	logDir        string
	emailNotify   string
	systemCommand string
	notifiedTTL   time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsBucket    string
	statsTrackKeys bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	// valores inválidos nunca são fatais: caem no padrão documentado
	s := domain.DefaultSettings()
	s.Enabled = getenvBoolDefault("DOS_ENABLED", true)
	s.HashTableSize = uint(getenvIntDefault("DOS_HASH_TABLE_SIZE", domain.DefaultHashTableSize))
	s.PageCount = uint(getenvIntDefault("DOS_PAGE_COUNT", domain.DefaultPageCount))
	s.SiteCount = uint(getenvIntDefault("DOS_SITE_COUNT", domain.DefaultSiteCount))
	s.PageInterval = getenvDurationDefault("DOS_PAGE_INTERVAL", domain.DefaultPageInterval)
	s.SiteInterval = getenvDurationDefault("DOS_SITE_INTERVAL", domain.DefaultSiteInterval)
	s.BlockingPeriod = getenvDurationDefault("DOS_BLOCKING_PERIOD", domain.DefaultBlockingPeriod)
	s.HTTPReply = getenvIntDefault("DOS_HTTP_STATUS", domain.DefaultHTTPReply)
	cfg.settings = s.Normalize()

	cfg.maxEntries = getenvIntDefault("DOS_MAX_ENTRIES", 0)
	cfg.whitelistIPs = splitList(os.Getenv("DOS_WHITELIST"))
	cfg.whitelistURIs = splitList(os.Getenv("DOS_WHITELIST_URI"))

	cfg.keyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.addHeaders = getenvBoolDefault("ADD_EVASIVE_HEADERS", false)

	cfg.logDir = getenvDefault("DOS_LOG_DIR", "/tmp")
	cfg.emailNotify = os.Getenv("DOS_EMAIL_NOTIFY")
	cfg.systemCommand = os.Getenv("DOS_SYSTEM_COMMAND")
	cfg.notifiedTTL = getenvDurationDefault("DOS_NOTIFIED_TTL", 24*time.Hour)

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.statsEnabled = getenvBoolDefault("DOS_STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("DOS_STATS_PREFIX", "evasive:stats")
	cfg.statsTTL = getenvDurationDefault("DOS_STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("DOS_STATS_BUCKET", "minute")
	cfg.statsTrackKeys = getenvBoolDefault("DOS_STATS_TRACK_KEYS", false)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.statsEnabled && strings.TrimSpace(cfg.redisAddr) == "" {
		return config{}, errors.New("REDIS_ADDR is required when DOS_STATS_ENABLED=true")
	}
	if cfg.maxEntries < 0 {
		return config{}, errors.New("DOS_MAX_ENTRIES must be >= 0")
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	// aceita tanto "10s" quanto o estilo mod_evasive, segundos puros ("10")
	if i, err := strconv.Atoi(v); err == nil {
		if i <= 0 {
			return def
		}
		return time.Duration(i) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
