// Command sendprompt pushes the "What's on your mind?" reminder to every
// stored subscription. It is meant to be run by cron or a systemd timer.
//
// Missing keys, missing subscriptions and failed deliveries are logged and
// exit 0; only configuration and storage errors exit non-zero.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/logging"
	"thought-stream-go/internal/notify"
	"thought-stream-go/internal/push"
	"thought-stream-go/internal/store"
	"thought-stream-go/internal/vapid"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	log = log.Named("sendprompt")

	keys, err := vapid.Load(cfg.VAPIDPrivateKeyFile, cfg.VAPIDPublicKeyFile)
	if errors.Is(err, vapid.ErrKeysNotFound) {
		log.Info("no VAPID keys yet, nothing to do", zap.Error(err))
		return 0
	}
	if err != nil {
		log.Error("failed to load VAPID keys", zap.Error(err))
		return 1
	}
	sender, err := push.FromConfig(keys, cfg)
	if err != nil {
		log.Error("failed to create push sender", zap.Error(err))
		return 1
	}

	st, err := store.FromConfig(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
		return 1
	}
	defer st.Close()

	results, err := notify.New(st, sender, log, nil).SendReminder(ctx)
	if err != nil {
		log.Error("failed to load subscriptions", zap.Error(err))
		return 1
	}

	var delivered int
	for _, res := range results {
		if res.OK() {
			delivered++
		}
	}
	log.Info("reminder run finished", zap.Int("subscriptions", len(results)), zap.Int("delivered", delivered))
	return 0
}
