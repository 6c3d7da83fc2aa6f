// Command clientiq-admin manages tenants and users directly against the
// configured database, without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/viper"

	"clientiq/internal/app"
	"clientiq/internal/platform/config"
	"clientiq/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	v := config.New()
	cmd := newRootCommand(v, openApp(v))
	cmd.SetOut(os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openApp loads configuration after cobra has bound the flags into v.
func openApp(v *viper.Viper) opener {
	return func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load(v)
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg, logger.New(cfg.LogLevel))
	}
}
