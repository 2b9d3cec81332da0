// Package main is the operator CLI for the recording sync: status, on-demand sync, backfill,
// single-session transfer and credential checks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvault/backend/config"
	"github.com/matchvault/backend/internal/app"
	"github.com/matchvault/backend/internal/auth"
)

func main() {
	c := &cli{out: os.Stdout, open: openApp, mint: mintToken}
	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mintToken(userID uuid.UUID, email, role string) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours).Generate(userID, email, role)
}

func openApp(ctx context.Context, verbose bool) (service, func(), error) {
	logger := zap.NewNop()
	if verbose {
		logger = app.NewLogger()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Open(ctx, cfg, app.Options{}, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		a.Close()
		_ = logger.Sync()
	}
	return appService{Reconciler: a.Reconciler, platform: a.Platform}, closeFn, nil
}
