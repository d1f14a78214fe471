package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
	_ "modernc.org/sqlite"

	"finsim/internal/api"
	"finsim/internal/config"
	"finsim/internal/demo"
	"finsim/internal/domain"
	"finsim/internal/sim"
	"finsim/internal/store"
)

func main() {
	cfg := config.Default()
	var (
		cfgPath   = flag.String("config", "", "optional yaml config file")
		addr      = flag.String("addr", cfg.Addr, "HTTP bind address")
		dbPath    = flag.String("db", cfg.DBPath, "SQLite DB path")
		tick      = flag.Duration("tick", cfg.TickInterval, "scheduler tick interval")
		debug     = flag.Bool("debug", false, "enable debug logging")
		seedOwner = flag.String("seed", "", "seed demo data for the given owner id and exit")
	)
	flag.Parse()

	cfg.Addr, cfg.DBPath, cfg.TickInterval, cfg.Debug = *addr, *dbPath, *tick, *debug
	if *cfgPath != "" {
		if err := config.Load(*cfgPath, &cfg); err != nil {
			log.Fatal().Err(err).Msg("load config")
		}
	}

	setupLogging(cfg)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := store.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	tasks := store.NewTaskRepository(db)
	accounts := store.NewAccountRepository(db)
	cards := store.NewCardRepository(db)
	loans := store.NewLoanRepository(db)
	transactions := store.NewTransactionRepository(db)
	upcoming := store.NewUpcomingTransactionRepository(db)

	if *seedOwner != "" {
		repos := demo.Repos{Accounts: accounts, Cards: cards, Loans: loans}
		if err := demo.Seed(context.Background(), repos, *seedOwner); err != nil {
			log.Fatal().Err(err).Msg("seed demo data")
		}
		log.Info().Str("owner", *seedOwner).Msg("demo data seeded")
		return
	}

	sims := sim.NewService(tasks, cards)
	if _, err := sims.EnsureSettlementTask(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("ensure settlement task")
	}

	processors := map[domain.TaskType]sim.Processor{
		domain.TaskTypeLoan:               sim.NewLoanProcessor(loans),
		domain.TaskTypeCardProcessing:     sim.NewCardProcessor(cards, accounts, upcoming),
		domain.TaskTypeRecurringPayment:   sim.NewRecurringPaymentProcessor(loans, upcoming),
		domain.TaskTypeUpcomingProcessing: sim.NewSettlementProcessor(upcoming, accounts, transactions),
	}
	scheduler := sim.NewScheduler(tasks, processors, cfg.TickInterval)

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Start(ctx)

	srv := &http.Server{Addr: cfg.Addr, Handler: api.NewServer(sims, accounts, transactions, upcoming)}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	cancel()
	scheduler.Stop()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	console := zerolog.ConsoleWriter{Out: os.Stdout}
	if cfg.LogFile == "" {
		log.Logger = log.Output(console)
		return
	}
	fileWriter := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(console, fileWriter))
}
