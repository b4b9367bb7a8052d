// Command server runs the appeal portal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/app"
	"github.com/zeyuan/appeal-service/internal/config"
)

func main() {
	var (
		configPath string
		envFile    string
		migrate    bool
		adminEmail string
		adminPass  string
	)
	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults to config.yaml under WRITABLE_PATH)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file loaded before environment overrides")
	flag.BoolVar(&migrate, "migrate", false, "run database migrations and exit")
	flag.StringVar(&adminEmail, "create-super-admin", "", "create or promote this e-mail to SUPER_ADMIN and exit")
	flag.StringVar(&adminPass, "password", "", "password for -create-super-admin")
	flag.Parse()

	if envFile != "" {
		if errEnv := godotenv.Load(envFile); errEnv != nil && !os.IsNotExist(errEnv) {
			log.WithError(errEnv).Warnf("failed to load %s", envFile)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := config.AppConfig{ConfigPath: configPath}
	switch {
	case migrate:
		if errMigrate := app.Migrate(ctx, appCfg); errMigrate != nil {
			log.WithError(errMigrate).Fatal("migration failed")
		}
		log.Info("migrations applied")
	case adminEmail != "":
		if errCreate := app.CreateSuperAdmin(ctx, appCfg, adminEmail, adminPass); errCreate != nil {
			log.WithError(errCreate).Fatal("create super admin failed")
		}
	default:
		if errRun := app.RunServer(ctx, appCfg); errRun != nil {
			log.WithError(errRun).Fatal("server stopped")
		}
	}
}
