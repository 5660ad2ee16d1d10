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

	"github.com/annel0/terrain-editor/internal/api"
	"github.com/annel0/terrain-editor/internal/app"
	"github.com/annel0/terrain-editor/internal/auth"
	"github.com/annel0/terrain-editor/internal/cache"
	"github.com/annel0/terrain-editor/internal/config"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/observability"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию ENV TERRAIN_CONFIG)")
	area := flag.Int("area", 2, "сгенерировать или загрузить чанки в квадрате [-area, area]")
	flag.Parse()

	if err := logging.InitDefaultLogger("terrain-server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	manager := logging.GetLoggerManager()
	for _, component := range []string{"editor", "storage", "api", "cache"} {
		manager.MustGetLogger(component)
	}
	for _, component := range manager.ListComponents() {
		if err := manager.SetLogLevel(component, level, logging.TRACE); err != nil {
			log.Printf("log level %s: %v", component, err)
		}
	}

	logging.Info("🗺️  Запуск редактора текстур ландшафта...")

	shutdownTracing, err := observability.InitTelemetry(context.Background(), cfg.Tracing)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации трассировки: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	editor, err := app.NewEditor(cfg, reg)
	if err != nil {
		log.Fatalf("❌ Ошибка создания редактора: %v", err)
	}
	defer editor.Close()

	loaded, err := editor.LoadAll()
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки чанков: %v", err)
	}
	if *area >= 0 {
		if err := editor.EnsureArea(vec.Vec2{X: -*area, Y: -*area}, vec.Vec2{X: *area, Y: *area}); err != nil {
			log.Fatalf("❌ Ошибка генерации чанков: %v", err)
		}
	}
	logging.Info("📦 Загружено из хранилища: %d, всего чанков: %d", loaded, editor.Map.Len())

	previews, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения кеша превью: %v", err)
	}
	defer previews.Close()

	var signer *auth.Signer
	if secret := cfg.Server.GetJWTSecret(); secret != "" {
		signer, err = auth.NewSigner(secret)
		if err != nil {
			log.Fatalf("❌ Неверный JWT ключ: %v", err)
		}
		logging.Info("🔐 Изменяющие запросы требуют JWT токен")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.GetHTTPPort())
	server := api.NewServer(api.Config{
		Addr:       addr,
		Map:        editor.Map,
		Store:      editor.Store,
		Cache:      editor.Cache,
		Previews:   previews,
		Auth:       signer,
		Brush:      cfg.Brush,
		Preview:    cfg.Preview,
		Registerer: reg,
		Gatherer:   reg,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logging.Info("✅ Редактор запущен")
	logging.Info("   🌐 REST API: http://localhost%s/api/chunks", addr)
	logging.Info("   📊 Метрики: http://localhost%s/metrics", addr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", addr)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ Ошибка HTTP сервера: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	saved, err := editor.SaveDirty(false, "")
	if err != nil {
		logging.Error("❌ Ошибка сохранения чанков: %v", err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		logging.Error("❌ Ошибка остановки трассировки: %v", err)
	}
	logging.Info("👋 Редактор остановлен, сохранено чанков: %d", len(saved))
}
