// Command migrate applies the embedded SQL migrations.
//
//	migrate [up|down|status|version|redo|reset] [args...]
package main

import (
	"context"
	"os"

	"github.com/theo-boilerplate/backend-go/internal/config"
	"github.com/theo-boilerplate/backend-go/internal/database"
	"github.com/theo-boilerplate/backend-go/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadConfig()
	appLogger := logger.New(cfg)

	command := "up"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	db, driver, err := database.ConnectDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		return 1
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	appLogger.Info("🧱 [Migrate] Running migrations", "command", command)
	if err := database.Migrate(context.Background(), db, driver, command, args...); err != nil {
		appLogger.Error("❌ Migration failed", "command", command, "error", err)
		return 1
	}
	appLogger.Info("✅ [Migrate] Done", "command", command)
	return 0
}
