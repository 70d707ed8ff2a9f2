package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/mmo-sim/internal/api"
	"github.com/annel0/mmo-sim/internal/auth"
	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/eventbus"
	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/network"
	"github.com/annel0/mmo-sim/internal/observability"
	"github.com/annel0/mmo-sim/internal/storage"
	"github.com/annel0/mmo-sim/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию ENV GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.Configure(logSettings(cfg.Logging))
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Info("🎮 Запуск сервера симуляции: карт %d, тик %d Гц", len(cfg.Maps), cfg.Simulation.TickRate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Телеметрия ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("OpenTelemetry не инициализирован: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer shutdownTelemetry(context.Background())

	if err := auth.Configure(cfg.Auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === Шина событий ===
	bus := newEventBus(cfg.EventBus)
	defer bus.Close()
	eventbus.Init(bus)
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Слушатель событий не запущен: %v", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, reg)
	defer exporter.Stop()

	// === Хранилище позиций ===
	positions := storage.NewPositionRepo(cfg.Storage)
	defer positions.Close()

	// === Карты ===
	maps, err := loadMaps(cfg)
	if err != nil {
		return err
	}

	// === Сессии ===
	codec, err := network.NewCodec(cfg.Server.CompressThreshold)
	if err != nil {
		return err
	}
	defer codec.Close()
	hubs := network.NewHubs(codec, network.NewMetrics(reg))

	opts := world.DefaultOptions()
	opts.Simulation = cfg.Simulation
	opts.Tuning = world.TuningFromConfig(cfg.AI)
	opts.Seed = time.Now().UnixNano()
	opts.Outbound = hubs.Broadcaster
	opts.Bus = bus
	opts.Positions = positions
	opts.Metrics = world.NewMetrics(reg)

	manager := world.NewManager(opts)
	for _, def := range maps {
		if _, err := manager.CreateWithID(def.Name, def); err != nil {
			return fmt.Errorf("сессия %s: %w", def.Name, err)
		}
	}
	manager.Start(ctx)

	// === Шлюзы ===
	gw := network.NewGateway(network.DefaultGatewayConfig(cfg), manager, hubs, positions)

	ws := network.NewWSServer(gw)
	if err := ws.Start(fmt.Sprintf(":%d", cfg.Server.GetWSPort())); err != nil {
		return fmt.Errorf("WebSocket: %w", err)
	}
	kcpServer := network.NewKCPServer(gw)
	if err := kcpServer.Start(fmt.Sprintf(":%d", cfg.Server.GetKCPPort())); err != nil {
		return fmt.Errorf("KCP: %w", err)
	}

	// === REST API ===
	rest := api.NewRestServer(api.Config{
		Addr:         fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Sessions:     manager,
		Registry:     reg,
		RequireAdmin: !cfg.Auth.AllowAnonymous,
		Clients:      gw.ConnectedClients,
	})
	if err := rest.Start(); err != nil {
		return fmt.Errorf("REST API: %w", err)
	}

	logging.Info("🚀 Сервер запущен: WS=%d, KCP=%d, REST=%d",
		cfg.Server.GetWSPort(), cfg.Server.GetKCPPort(), cfg.Server.GetRESTPort())

	<-ctx.Done()
	logging.Info("🛑 Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Warn("REST API: %v", err)
	}
	if err := ws.Stop(shutdownCtx); err != nil {
		logging.Warn("WebSocket: %v", err)
	}
	if err := kcpServer.Stop(); err != nil {
		logging.Warn("KCP: %v", err)
	}
	gw.Close()
	// Сессии останавливаются по ctx и сохраняют позиции игроков
	manager.Wait()

	logging.Info("✅ Сервер остановлен")
	return nil
}

// newEventBus подключает JetStream, если задан URL, иначе шина в памяти
func newEventBus(cfg config.EventBusConfig) eventbus.EventBus {
	if cfg.URL != "" {
		bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
		if err == nil {
			logging.Info("📨 Шина событий: JetStream %s, stream %s", cfg.URL, cfg.Stream)
			return bus
		}
		logging.Warn("JetStream недоступен, используется шина в памяти: %v", err)
	}
	return eventbus.NewMemoryBus(cfg.Buffer)
}

func logSettings(cfg config.LoggingConfig) logging.Settings {
	s := logging.DefaultSettings()
	s.Dir = cfg.Dir
	if cfg.ConsoleLevel != "" {
		s.ConsoleLevel = logging.ParseLevel(cfg.ConsoleLevel)
	}
	if cfg.FileLevel != "" {
		s.FileLevel = logging.ParseLevel(cfg.FileLevel)
	}
	if cfg.MaxSizeMB > 0 {
		s.MaxSizeMB = cfg.MaxSizeMB
	}
	return s
}
