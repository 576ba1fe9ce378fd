package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/annel0/tileworld/internal/api"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/game"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации (по умолчанию $TILEWORLD_CONFIG)")
	seedFlag := flag.String("seed", "", "сид мира, перекрывает конфигурацию")
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *seedFlag != "" {
		seed, err := strconv.ParseInt(*seedFlag, 10, 64)
		if err != nil {
			log.Fatalf("❌ Неверный сид %q: %v", *seedFlag, err)
		}
		cfg.World.Seed = &seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}

	logging.LogDir = cfg.Logging.Dir
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()

	logging.GetLoggerManager().SetLevels(logging.ParseLevel(cfg.Logging.Level), logging.TRACE)

	logging.Info("🌍 Запуск Tile World Server (seed=%d, карт=%d)", *cfg.World.Seed, len(cfg.World.Maps))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("OpenTelemetry не инициализирован: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	reg, err := loadRegistry(cfg.World.Catalog)
	if err != nil {
		logging.Error("❌ Ошибка загрузки каталога тайлов: %v", err)
		os.Exit(1)
	}
	logging.Info("🧱 Каталог тайлов: %d типов", reg.Len())

	bus := openBus(cfg.EventBus)
	eventbus.Init(bus)
	defer func() { _ = bus.Close() }()

	if sub, err := eventbus.StartLoggingListener(bus, logging.GetComponentLogger("eventbus")); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	} else {
		defer sub.Unsubscribe()
	}
	exporter := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	exporter.Start(5 * time.Second)
	defer exporter.Stop()

	session, err := game.NewSession(game.Options{
		Config:   cfg,
		Registry: reg,
		Logger:   logging.GetComponentLogger("game"),
		Bus:      bus,
	})
	if err != nil {
		logging.Error("❌ Ошибка создания сессии: %v", err)
		os.Exit(1)
	}
	session.OnProgress(func(f float64, label string) {
		logging.Debug("⏳ %s: %.0f%%", label, f*100)
	})
	if err := session.Load(ctx, *cfg.World.Seed); err != nil {
		logging.Error("❌ Ошибка запуска генерации: %v", err)
		os.Exit(1)
	}

	loopDone := make(chan error, 1)
	go func() { loopDone <- session.Run(ctx, cfg.Simulation.TickRate) }()

	rest := api.NewRestServer(api.Config{
		Addr:    cfg.Server.Addr(),
		Session: session,
		Service: cfg.Telemetry.ServiceName,
	})
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ REST API остановлен с ошибкой: %v", err)
			stop()
		}
	}()

	logging.Info("✅ Сервер запущен")
	logging.Info("   🌐 REST API: http://%s", cfg.Server.Addr())
	logging.Info("   ❤️  Health check: http://%s/health", cfg.Server.Addr())
	logging.Info("   🗺  Миникарта: http://%s/api/maps/%s/minimap.png", cfg.Server.Addr(), cfg.World.Maps[0].Name)

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	<-loopDone
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// loadRegistry читает YAML-каталог тайлов или собирает встроенный
func loadRegistry(path string) (*tile.Registry, error) {
	if path == "" {
		return tile.NewDefaultRegistry()
	}
	logging.Info("Каталог тайлов из %s", path)
	return tile.LoadCatalogFile(path)
}

// openBus подключает JetStream, если задан URL; при ошибке остаётся шина в памяти
func openBus(cfg config.EventBusConfig) eventbus.EventBus {
	if cfg.URL != "" {
		retention := time.Duration(cfg.Retention) * time.Hour
		js, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.Subject, retention)
		if err == nil {
			logging.Info("📨 EventBus: NATS JetStream %s, стрим %s", cfg.URL, cfg.Stream)
			return js
		}
		logging.Warn("NATS JetStream недоступен (%v), используется шина в памяти", err)
	}
	logging.Info("📨 EventBus: in-memory, буфер %d", cfg.Buffer)
	return eventbus.NewMemoryBus(cfg.Buffer)
}
