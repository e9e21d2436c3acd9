package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ap-tracker/internal/auth"
	"ap-tracker/internal/config"
	"ap-tracker/internal/handlers"
	"ap-tracker/internal/logger"
	"ap-tracker/internal/storage"
	"ap-tracker/internal/tracker"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; exit immediately.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	weekStart, err := cfg.WeekStartDay()
	if err != nil {
		return err
	}

	db, err := storage.OpenURL(ctx, cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	log.Info("database ready", zap.String("dialect", string(db.Dialect())))

	svc := tracker.NewService(db, tracker.WithLocation(loc), tracker.WithWeekStart(weekStart))

	if cfg.BootstrapAdmin() {
		if err := bootstrapAdmin(ctx, db, svc, cfg.AdminUser, cfg.AdminPassword, log); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	if n, err := db.CleanExpiredSessions(ctx); err != nil {
		log.Warn("clean expired sessions", zap.Error(err))
	} else if n > 0 {
		log.Info("removed expired sessions", zap.Int64("count", n))
	}

	h := handlers.NewHandlers(db, svc, log, cfg.TemplateDir, cfg.SecureCookie)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.RequestLogger(log, setupRouter(h, cfg.StaticDir)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting ap-tracker",
			zap.String("addr", srv.Addr),
			zap.String("time_zone", loc.String()),
			zap.String("week_start", weekStart.String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the configured user when the database has no users yet.
func bootstrapAdmin(ctx context.Context, db *storage.DB, svc *tracker.Service, username, password string, log *zap.Logger) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user, err := svc.RegisterUser(ctx, username, hash)
	if err != nil {
		return err
	}
	log.Info("created initial user", zap.String("username", user.Username))
	return nil
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /healthz", h.Healthz)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)

	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.AuthMiddleware(fn))
	}

	protected("GET /dashboard", h.Dashboard)
	protected("POST /earn/custom", h.EarnCustom)
	protected("POST /earn/{id}", h.Earn)
	protected("POST /spend/{cost}", h.Spend)
	protected("POST /entries/undo-last-spend", h.UndoLastSpend)

	protected("GET /quests", h.Quests)
	protected("POST /quests", h.CreateQuest)
	protected("POST /quests/{id}/activate", h.ActivateQuest)
	protected("POST /quests/{id}/complete", h.CompleteQuest)
	protected("POST /quests/{id}/notes", h.UpdateQuestNotes)
	protected("POST /quests/{id}/delete", h.DeleteQuest)

	protected("GET /presets", h.Presets)
	protected("POST /presets", h.CreatePreset)
	protected("POST /presets/{id}/toggle", h.TogglePreset)
	protected("POST /presets/{id}/delete", h.DeletePreset)
	protected("POST /presets/{id}/move/{direction}", h.MovePreset)

	protected("GET /settings", h.Settings)
	protected("POST /settings", h.UpdateSettings)

	protected("GET /stats", h.Statistics)

	return mux
}
