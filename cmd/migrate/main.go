package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"scriptify/internal/config"
	"scriptify/internal/models"
	"scriptify/internal/scripts"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	var (
		flagDSN  string
		flagSeed bool
	)
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(os.Stdout)
	flagSet.StringVar(&flagDSN, "dsn", os.Getenv("DB_DSN"), "Postgres DSN, if set overrides config")
	flagSet.BoolVar(&flagSeed, "seed", false, "insert sample data after migrating")
	_ = flagSet.Parse(os.Args[1:])

	dsn := flagDSN
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
			getenvDefault("DB_SSLMODE", "disable"), getenvDefault("DB_TIMEZONE", "UTC"))
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
		&models.Automation{},
		&models.AutomationRun{},
		&models.Message{},
		&models.PendingMessage{},
		&models.ActivityEvent{},
		&models.DailyStat{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_runs_automation_created ON automation_runs(automation_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_source_created ON messages(source, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_activity_events_kind_created ON activity_events(kind, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_pending_messages_scheduled ON pending_messages(scheduled_at)")

	log.Println("Additional indexes created successfully!")

	if flagSeed {
		log.Println("Seeding default data...")
		seedDefaultData(db)
		log.Println("Default data seeded successfully!")
	}

	log.Println("Migration process completed!")
}

func seedDefaultData(db *gorm.DB) {
	var existing models.Automation
	if err := db.Where("name = ?", "weekly_activity_report").First(&existing).Error; err != nil {
		fields, _ := json.Marshal(map[string]string{
			"title":      "Weekly activity for %%SITE_TITLE%%",
			"body":       "Likes this week:%%REPORT=likes%%",
			"recipients": "admins",
		})
		state, _ := json.Marshal(map[string]any{"cron": "@weekly"})
		a := models.Automation{
			Name:         "weekly_activity_report",
			ScriptName:   scripts.ScriptSendReport,
			TriggerName:  scripts.TriggerRecurring,
			TriggerState: string(state),
			FieldValues:  string(fields),
			Enabled:      true,
		}
		db.Create(&a)
		log.Println("Created sample report automation")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
