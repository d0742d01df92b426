// Command client - безголовый клиент мира: принимает пакеты чанков и сущностей,
// ведёт индекс мира и отдаёт его состояние через отладочный API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/tileworld/internal/api"
	"github.com/annel0/tileworld/internal/cache"
	"github.com/annel0/tileworld/internal/codec"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/loader"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/network"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/world"
)

// reconnectDelay - пауза перед повторным подключением к серверу
const reconnectDelay = 3 * time.Second

func main() {
	configPath := flag.String("config", "", "путь к файлу конфигурации (yaml/toml), по умолчанию $"+config.EnvConfigPath)
	flag.Parse()

	if err := run(*configPath); err != nil {
		logging.Error("❌ %v", err)
		_ = logging.Close()
		log.Fatalf("❌ %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := initLogging(cfg.Logging); err != nil {
		return fmt.Errorf("ошибка инициализации логирования: %w", err)
	}
	defer logging.Close()

	logging.Info("🎮 Запуск клиента мира: сервер=%s транспорт=%s измерение=%s",
		cfg.Server.URL, cfg.Server.Transport, cfg.World.Dimension)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("⚠️ Трассировка отключена: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	defs, err := loadDefinitions(cfg.Definitions.Path)
	if err != nil {
		return err
	}
	idMode, err := codec.ParseIDMode(cfg.Codec.EntityIDMode)
	if err != nil {
		return err
	}
	transport, err := network.ParseChannelType(cfg.Server.Transport)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace, reg)

	// === События мира ===
	bus := newEventBus(cfg.EventBus)
	defer bus.Close()
	publisher := eventbus.NewWorldPublisher(bus, cfg.Telemetry.ServiceName, cfg.EventBus.Buffer)

	index := world.NewIndex(defs,
		world.WithDimension(cfg.World.Dimension),
		world.WithLocalPlayer(cfg.Server.LocalPlayerID),
		world.WithListener(world.Listeners{publisher}),
		world.WithViewHook(func(p *world.Entity) {
			pos := p.Position()
			logging.Info("🎥 Камера на локальном игроке %d (%.1f, %.1f)", p.ID, pos.X, pos.Y)
		}),
	)

	// === Кэши полезных нагрузок ===
	var store *storage.ChunkStore
	if cfg.Storage.Enabled {
		store, err = storage.NewChunkStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	hot := newRedisCache(cfg.Cache, store)
	if hot != nil {
		defer hot.Close()
	}

	opts := []loader.Option{loader.WithMetrics(m)}
	var source loader.PayloadSource
	switch {
	case hot != nil:
		// Redis пишет в badger сам (write-behind) и читает из него при промахе
		opts = append(opts, loader.WithStore(hot))
		source = hot
	case store != nil:
		opts = append(opts, loader.WithStore(store))
		source = store
	}
	ld := loader.New(defs, index, idMode, opts...)

	if store != nil {
		if _, err := ld.WarmStart(ctx, store); err != nil {
			logging.Warn("⚠️ Тёплый старт прерван: %v", err)
		}
	}

	var wg sync.WaitGroup
	goRun := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	goRun(func() { publisher.Run(ctx) })
	goRun(func() { eventbus.NewMetricsExporter(bus, reg).Run(ctx) })
	if sub, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("⚠️ Журнал событий недоступен: %v", err)
	} else {
		defer sub.Unsubscribe()
	}

	updater := world.NewUpdater(index, cfg.World.TicksPerSecond)
	updater.SetTickHook(m.Tick)
	goRun(func() { updater.Run(ctx) })

	conn := &connectionHolder{}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(api.Config{
			Port:       cfg.API.GetPort(),
			Index:      index,
			Loader:     ld,
			Source:     source,
			Connection: conn,
			Registry:   reg,
		})
		goRun(func() {
			if err := apiServer.Start(); err != nil {
				logging.Error("❌ Ошибка отладочного API: %v", err)
			}
		})
	}

	chCfg := network.DefaultChannelConfig(transport)
	if cfg.Server.MaxFrameSize > 0 {
		chCfg.MaxFrameSize = cfg.Server.MaxFrameSize
	}
	dispatcher := network.NewDispatcher(ld, m)
	goRun(func() { receive(ctx, chCfg, cfg.Server.URL, dispatcher, conn) })

	logging.Info("✅ Клиент запущен")
	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, остановка...")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки API: %v", err)
		}
		cancel()
	}
	wg.Wait()

	logging.Info("👋 Клиент остановлен: чанков=%d сущностей=%d тиков=%d, потеряно событий=%d",
		index.ChunkCount(), index.EntityCount(), updater.TickCount(), publisher.Dropped())
	return nil
}

// receive держит соединение с сервером и переподключается после разрыва
func receive(ctx context.Context, cfg *network.ChannelConfig, addr string, d *network.Dispatcher, conn *connectionHolder) {
	for {
		ch, err := network.Dial(ctx, cfg, addr)
		if err != nil {
			logging.Warn("⚠️ Не удалось подключиться к %s: %v", addr, err)
		} else {
			conn.set(ch)
			if err := d.Run(ctx, ch); err != nil {
				logging.Warn("⚠️ Соединение прервано: %v", err)
			}
			_ = ch.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
			logging.Info("🔄 Повторное подключение к %s", addr)
		}
	}
}

// connectionHolder отдаёт статистику текущего канала для API
type connectionHolder struct {
	mu sync.RWMutex
	ch network.PacketChannel
}

func (h *connectionHolder) set(ch network.PacketChannel) {
	h.mu.Lock()
	h.ch = ch
	h.mu.Unlock()
}

func (h *connectionHolder) Stats() network.ConnectionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ch == nil {
		return network.ConnectionStats{}
	}
	return h.ch.Stats()
}

func initLogging(cfg config.LoggingConfig) error {
	console, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	file, err := logging.ParseLevel(cfg.FileLevel)
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Options{Dir: cfg.Dir, ConsoleLevel: console, FileLevel: file}); err != nil {
		return err
	}
	return logging.GetLoggerManager().ApplyLevels(cfg.Components)
}

func loadDefinitions(path string) (*definitions.Registry, error) {
	if path == "" {
		return definitions.Default(), nil
	}
	defs, err := definitions.Load(path)
	if err != nil {
		return nil, fmt.Errorf("таблица определений %s: %w", path, err)
	}
	logging.Info("📚 Загружена таблица определений: %s", path)
	return defs, nil
}

// newEventBus подключает JetStream; при недоступности NATS события идут в локальную шину
func newEventBus(cfg config.EventBusConfig) eventbus.EventBus {
	if cfg.Enabled {
		bus, err := eventbus.NewJetStreamBus(cfg.GetURL(), cfg.Stream, 24*time.Hour)
		if err == nil {
			return bus
		}
		logging.Warn("⚠️ NATS JetStream недоступен (%v), используется локальная шина", err)
	}
	return eventbus.NewMemoryBus(cfg.Buffer)
}

// newRedisCache возвращает nil, если кэш выключен или Redis недоступен
func newRedisCache(cfg config.CacheConfig, store *storage.ChunkStore) *cache.RedisCache {
	if !cfg.Enabled {
		return nil
	}
	cacheCfg := &cache.CacheConfig{
		RedisURL:           cfg.GetAddr(),
		RedisDB:            cfg.DB,
		DefaultTTL:         cfg.TTL(),
		WriteBehindEnabled: store != nil,
	}

	var cold cache.ColdStorage
	if store != nil {
		cold = store
	}
	hot, err := cache.NewRedisCache(cacheCfg, cold)
	if err != nil {
		logging.Warn("⚠️ Redis недоступен (%v), кэш отключён", err)
		return nil
	}
	return hot
}
