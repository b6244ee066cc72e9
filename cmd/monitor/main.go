package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crypto-monitor/config"
	"crypto-monitor/internal/api"
	"crypto-monitor/internal/breaker"
	"crypto-monitor/internal/feed"
	"crypto-monitor/internal/gateway"
	"crypto-monitor/internal/logger"
	"crypto-monitor/internal/metrics"
	"crypto-monitor/internal/monitor"
	"crypto-monitor/internal/notification"
)

const replaySize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[monitor] config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init("crypto-monitor", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[monitor] logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("monitor exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.New(reg)
	health := metrics.NewHealthStatus()

	newBreaker := func(name string, maxFailures int, reset time.Duration) *breaker.Breaker {
		b := breaker.New(name, maxFailures, reset)
		b.OnStateChange = func(name string, from, to breaker.State) {
			prom.BreakerTransition(name, int(to))
			log.Warn("circuit breaker transition",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		return b
	}

	// ---- Feed ----
	client := feed.New(cfg.FeedURL, cfg.VsCurrency, cfg.TopN,
		feed.WithBreaker(newBreaker("feed", 5, 2*time.Minute)))

	// ---- Dashboard hub ----
	hub := gateway.NewHub(log.Named("gateway"), replaySize)
	hub.OnClientsChanged = prom.SetWSClients

	// ---- Notifiers ----
	sinks := notification.NewMulti()
	if cfg.TelegramEnabled() {
		tg := notification.NewTelegramNotifier(cfg.TelegramToken, cfg.ChatID)
		sinks.Add("telegram", notification.Guarded(tg, newBreaker("telegram", 3, time.Minute)))
	}
	if cfg.WebhookURL != "" {
		wh := notification.NewWebhookNotifier(cfg.WebhookURL)
		sinks.Add("webhook", notification.Guarded(wh, newBreaker("webhook", 3, time.Minute)))
	}

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		pinger := redisPinger{rdb}
		health.CheckRedis(ctx, pinger)
		health.StartLivenessChecker(ctx, pinger, 15*time.Second)

		sinks.Add("redis", notification.NewRedisPublisher(rdb, cfg.RedisChannel))
	}
	if sinks.Len() == 0 {
		log.Warn("no Telegram, webhook or Redis configured; reports go to the log only")
		sinks.Add("log", notification.NewLogNotifier(log.Named("notify")))
	}
	sinks.Add("dashboard", notification.NewHubNotifier(hub))
	sinks.OnResult = func(name string, err error) {
		prom.NotificationResult(name, err)
		if err != nil {
			log.Warn("notification failed", zap.String("channel", name), zap.Error(err))
		}
	}
	log.Info("notification channels", zap.Strings("channels", sinks.Names()))

	// ---- Monitor ----
	svc := monitor.New(cfg, client, sinks,
		monitor.WithHistory(client),
		monitor.WithMetrics(prom),
		monitor.WithHealth(health),
		monitor.WithLogger(log.Named("monitor")),
	)

	// ---- HTTP ----
	router := api.NewRouter(api.Deps{
		Monitor: svc,
		Health:  health,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		WS:      hub,
		Replay:  hub,
		Log:     log.Named("http"),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return api.Serve(ctx, cfg.HTTPAddr, router, log.Named("http"))
	})
	g.Go(func() error {
		return svc.Run(ctx)
	})

	log.Info("monitor running",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("currency", cfg.VsCurrency),
		zap.Int("top_n", cfg.TopN),
		zap.Int("interval_minutes", cfg.IntervalMinutes),
	)
	return g.Wait()
}

type redisPinger struct {
	c *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.c.Ping(ctx).Err()
}
