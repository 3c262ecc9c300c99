// Command genkeys creates the VAPID key pair the server signs push messages
// with. Running it again replaces the pair, after which every browser has to
// subscribe again.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/filex"
	"thought-stream-go/internal/logging"
	"thought-stream-go/internal/models"
	"thought-stream-go/internal/vapid"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("genkeys", flag.ContinueOnError)
	totpAccount := fs.String("totp", "", "also create a TOTP secret for this account")
	qrPath := fs.String("qr", "totp.png", "where to write the TOTP enrolment QR code")
	if err := fs.Parse(args); err != nil {
		return 2
	}

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

	kp, err := vapid.Generate()
	if err != nil {
		log.Error("failed to generate key pair", zap.Error(err))
		return 1
	}
	if err := vapid.Save(kp, cfg.VAPIDPrivateKeyFile, cfg.VAPIDPublicKeyFile); err != nil {
		log.Error("failed to save key pair", zap.Error(err))
		return 1
	}
	log.Info("VAPID keys saved",
		zap.String("private", cfg.VAPIDPrivateKeyFile),
		zap.String("public", cfg.VAPIDPublicKeyFile))
	fmt.Fprintf(stdout, "VAPID public key: %s\n", kp.PublicKeyBase64())

	if *totpAccount == "" {
		return 0
	}

	key, err := models.GenerateTOTPSecret(*totpAccount)
	if err != nil {
		log.Error("failed to generate TOTP secret", zap.Error(err))
		return 1
	}
	png, err := models.QRCodePNG(key, 256)
	if err != nil {
		log.Error("failed to render QR code", zap.Error(err))
		return 1
	}
	if err := filex.WriteAtomic(*qrPath, png, 0o600); err != nil {
		log.Error("failed to write QR code", zap.Error(err))
		return 1
	}
	fmt.Fprintf(stdout, "TOTP secret: %s\nSet APP_TOTP_SECRET to enable two-factor login. QR code written to %s\n", key.Secret(), *qrPath)
	return 0
}
