package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/moredark/talking-bob/internal/ai"
	"github.com/moredark/talking-bob/internal/config"
	"github.com/moredark/talking-bob/internal/metrics"
	"github.com/moredark/talking-bob/internal/ratelimit"
	"github.com/moredark/talking-bob/internal/schedule"
	"github.com/moredark/talking-bob/internal/store"
	"github.com/moredark/talking-bob/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	sched   *schedule.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting talking-bob",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("semantics", a.cfg.DeliverySemantics),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	metrics.MustRegister()
	a.httpSrv = a.newOpsServer()

	sender := telegram.NewSender(a.bot, a.cfg.SendRatePerSec)
	schedules := schedule.NewService(repo, a.log)
	dispatcher := schedule.NewDailyPromptDispatcher(repo, sender, a.log)
	limits := ratelimit.NewService(repo)
	whisper := ai.NewWhisperClient(a.cfg.WhisperURL, a.cfg.AIAPIKey, a.cfg.WhisperModel, a.log)
	llm := ai.NewLLMClient(a.cfg.LLMURL, a.cfg.AIAPIKey, a.cfg.LLMModel, a.log)
	tts := ai.NewTTSClient(a.cfg.TTSBaseURL, a.cfg.TTSAPIKey, a.cfg.TTSModel, a.cfg.TTSVoiceID, a.log)

	a.router = telegram.NewRouter(a.bot, a.log, telegram.Deps{
		Repo:       repo,
		Sender:     sender,
		Schedules:  schedules,
		Dispatcher: dispatcher,
		Limits:     limits,
		Whisper:    whisper,
		LLM:        llm,
		TTS:        tts,
		Defaults: store.UserDefaults{
			Hour:     a.cfg.DefaultPromptHour,
			Minute:   a.cfg.DefaultPromptMinute,
			Timezone: a.cfg.DefaultTZ,
		},
	})

	a.sched = schedule.NewScheduler(
		schedules, dispatcher,
		schedule.ParseSemantics(a.cfg.DeliverySemantics),
		a.log,
	)
	if err := a.sched.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) newOpsServer() *http.Server {
	r := chi.NewRouter()

	// Liveness: process is up
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Readiness: the database answers
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), time.Second)
		defer cancel()
		if err := a.repo.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func (a *App) shutdown() {
	a.sched.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
}
