package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "mentorlog/internal/adapters/email"
	web "mentorlog/internal/adapters/http"
	"mentorlog/internal/adapters/storage"
	accountStorePkg "mentorlog/internal/adapters/storage/account"
	outboxStorePkg "mentorlog/internal/adapters/storage/outbox"
	recordStorePkg "mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/application/orchestrators"
	"mentorlog/internal/domain/outbox"
	"mentorlog/internal/domain/requirements"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := envOrDefault("MENTORLOG_DB", "mentorlog.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Wrap DB with slow-query logging
	timedDB := storage.NewTimedDB(db)

	acctStore := accountStorePkg.NewSQLiteStore(timedDB)
	outboxStore := outboxStorePkg.NewSQLiteStore(timedDB)
	baseRecordStore := recordStorePkg.NewSQLiteStore(timedDB)
	cachedRecordStore := recordStorePkg.NewCachedStore(baseRecordStore, recordStorePkg.DefaultCacheTTL)

	stores := &web.Stores{
		AccountStore: acctStore,
		RecordStore:  cachedRecordStore,
		RecordCache:  cachedRecordStore,
		OutboxStore:  outboxStore,
	}

	// Seed the coordinator account if no accounts exist
	coordEmail := envOrDefault("MENTORLOG_COORDINATOR_EMAIL", "coordinator@mentorlog.org")
	coordPassword := os.Getenv("MENTORLOG_COORDINATOR_PASSWORD")
	if coordPassword != "" {
		seedDeps := orchestrators.CreateAccountDeps{AccountStore: acctStore}
		if err := orchestrators.ExecuteSeedCoordinator(context.Background(), seedDeps, coordEmail, coordPassword); err != nil {
			log.Fatalf("failed to seed coordinator: %v", err)
		}
	}

	// Special-question requirements: compiled-in table unless overridden
	reqs := requirements.Default()
	if path := os.Getenv("MENTORLOG_REQUIREMENTS_FILE"); path != "" {
		reqs, err = requirements.Load(path)
		if err != nil {
			log.Fatalf("failed to load requirements file: %v", err)
		}
		log.Printf("Requirement table loaded from %s", path)
	}

	// Configure email sender
	resendKey := os.Getenv("MENTORLOG_RESEND_KEY")
	emailFrom := envOrDefault("MENTORLOG_RESEND_FROM", "Mentorlog <noreply@mentorlog.org>")
	emailReply := envOrDefault("MENTORLOG_REPLY_TO", "coordinator@mentorlog.org")
	var sender emailPkg.Sender
	if resendKey != "" {
		sender = emailPkg.NewResendSender(resendKey, emailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if os.Getenv("MENTORLOG_ENV") == "production" {
			log.Println("WARNING: MENTORLOG_RESEND_KEY is not set, email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set MENTORLOG_RESEND_KEY for real delivery)")
		}
	}
	web.SetEmailSender(sender, emailFrom, emailReply)

	// Outbox background worker delivers queued hole reminders
	outboxStopCh := make(chan struct{})
	outboxProcessor := orchestrators.NewOutboxProcessor(outboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeHoleReminder: &orchestrators.HoleReminderExecutor{Sender: sender, From: emailFrom},
	})
	orchestrators.StartBackgroundWorker(outboxProcessor, 1*time.Minute, outboxStopCh)
	defer close(outboxStopCh)

	mux := web.NewMux("static", stores, reqs)

	addr := envOrDefault("MENTORLOG_ADDR", ":8080")
	log.Printf("Mentorlog %s starting on %s (env=%s)", version, addr, envOrDefault("MENTORLOG_ENV", "development"))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
