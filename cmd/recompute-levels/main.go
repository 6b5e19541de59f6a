package main

import (
	"database/sql"
	"time"

	"github.com/ad/insight-quest/internal/config"
	"github.com/ad/insight-quest/internal/db"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	cfg.SetupLogging()

	database, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := db.InitSchema(database); err != nil {
		logrus.Fatalf("Failed to initialize schema: %v", err)
	}

	queue := db.NewDBQueue(database)
	defer queue.Close()

	logrus.Infof("Recomputing levels in %s...", cfg.DBPath)
	fixed, err := db.NewProgressionRepository(queue).RepairDerived(time.Now())
	if err != nil {
		logrus.Fatalf("Failed to recompute levels: %v", err)
	}

	logrus.Infof("Levels recomputed, %d records corrected", fixed)
}
