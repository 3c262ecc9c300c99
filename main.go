package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/handlers"
	"thought-stream-go/internal/images"
	"thought-stream-go/internal/logging"
	"thought-stream-go/internal/models"
	"thought-stream-go/internal/notify"
	"thought-stream-go/internal/push"
	"thought-stream-go/internal/store"
	"thought-stream-go/internal/vapid"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := store.FromConfig(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer st.Close()
	log.Info("store ready", zap.String("backend", cfg.StoreBackend))

	// Push stays off until genkeys has been run.
	var sender notify.Sender
	keys, err := vapid.Load(cfg.VAPIDPrivateKeyFile, cfg.VAPIDPublicKeyFile)
	switch {
	case errors.Is(err, vapid.ErrKeysNotFound):
		log.Warn("VAPID keys not found, push notifications disabled; run genkeys", zap.Error(err))
	case err != nil:
		return err
	default:
		ps, err := push.FromConfig(keys, cfg)
		if err != nil {
			return err
		}
		sender = ps
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	imgs, err := newImageStore(cfg)
	if err != nil {
		return err
	}

	pages, err := parsePages(filepath.Join("web", "templates"), "index", "login")
	if err != nil {
		return err
	}

	user, err := buildUser(cfg)
	if err != nil {
		return err
	}

	opts := handlers.Options{
		Store:         st,
		Notifier:      notify.New(st, sender, log, reg),
		Images:        imgs,
		Keys:          keys,
		User:          user,
		Pages:         pages,
		PageSize:      cfg.PageSize,
		ImageMaxWidth: cfg.ImageMaxWidth,
		SessionSecret: cfg.SessionSecret,
		StaticDir:     filepath.Join("web", "static"),
		UploadPrefix:  cfg.UploadURLPrefix,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:           log,
	}
	if cfg.ImageBackend == config.ImageBackendLocal {
		opts.UploadDir = cfg.UploadDir
	}
	if rs, ok := st.(*store.RedisStore); ok {
		opts.Events = rs
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewHandler(opts).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.Bool("push_enabled", keys != nil))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newImageStore(cfg *config.Config) (images.Store, error) {
	if cfg.ImageBackend == config.ImageBackendS3 {
		return images.NewS3Store(images.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
		})
	}
	return images.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)
}

func parsePages(dir string, names ...string) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.ParseFiles(filepath.Join(dir, name+".html"))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// buildUser prefers APP_PASSWORD_HASH and hashes a plain APP_PASSWORD
// otherwise.
func buildUser(cfg *config.Config) (models.User, error) {
	user := models.User{
		Username:     cfg.Username,
		PasswordHash: cfg.PasswordHash,
		TOTPSecret:   strings.TrimSpace(cfg.TOTPSecret),
	}
	if user.PasswordHash == "" {
		hash, err := models.HashPassword(cfg.Password)
		if err != nil {
			return models.User{}, err
		}
		user.PasswordHash = hash
	}
	return user, nil
}
