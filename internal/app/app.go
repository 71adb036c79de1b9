package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsflashAnalyzer/internal/analysis"
	"NewsflashAnalyzer/internal/config"
	"NewsflashAnalyzer/internal/infrastructure/llm"
	"NewsflashAnalyzer/internal/infrastructure/parser"
	"NewsflashAnalyzer/internal/infrastructure/scheduler"
	"NewsflashAnalyzer/internal/infrastructure/storage"
	"NewsflashAnalyzer/internal/infrastructure/telegram"
	"NewsflashAnalyzer/internal/logging"
	"NewsflashAnalyzer/internal/ports"
	"NewsflashAnalyzer/internal/scanner"
	"NewsflashAnalyzer/internal/usecase"
)

// Application wires config into the pipeline and its batch scheduler.
type Application struct {
	cfg       config.Config
	store     *storage.MySQLStore
	scheduler *usecase.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance. The configuration struct is
// passed by value into every constructor; nothing reads ambient state after
// this point.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewJin10Scanner(nil, baseLogger.With("component", "scanner.jin10")))
	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	completer := llm.NewOllamaClient(cfg.Ollama)
	classifier := analysis.NewNewsClassifier(completer, baseLogger.With("component", "classifier"))
	extractor := analysis.NewImpactAnalyzer(completer, baseLogger.With("component", "impact"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Store:      store,
		Classifier: classifier,
		Extractor:  extractor,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewIntervalScheduler(time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute)

	return &Application{
		cfg:       cfg,
		store:     store,
		scheduler: usecase.NewScheduler(driver, pipeline),
		logger:    baseLogger.With("component", "app"),
	}, nil
}

// Run executes batches until the context is cancelled. With a zero interval
// a single batch runs and Run returns.
func (a *Application) Run(ctx context.Context) error {
	defer a.store.Close()

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if a.cfg.Scheduler.IntervalMinutes <= 0 {
		return nil
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	return a.scheduler.Stop(context.Background())
}
