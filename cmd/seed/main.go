package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/zfogg/inkwell/internal/config"
	"github.com/zfogg/inkwell/internal/container"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/seed"
)

func main() {
	cfg, envLoaded := config.Load()
	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	logger.InitializeConsole(cfg.LogLevel)

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "dev":
		err = runSeed(ctx, cfg, "development", seed.DevCounts())
	case "test":
		err = runSeed(ctx, cfg, "test", seed.TestCounts())
	case "clean":
		err = runClean(ctx, cfg)
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		fmt.Println()
		fmt.Println("Set SEED to a number for a reproducible dataset.")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("❌ %s failed: %v", command, err)
	}
}

func runSeed(ctx context.Context, cfg *config.Config, name string, counts seed.Counts) error {
	log.Printf("🌱 Seeding %s database...", name)

	deps, err := container.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer deps.Cleanup(context.WithoutCancel(ctx))
	log.Println("✅ Database and Redis connected")

	seeder := seed.NewSeeder(deps.DB(), deps.Ledger(), seedFromEnv())
	summary, err := seeder.Seed(ctx, counts)
	if err != nil {
		return err
	}

	log.Printf("✅ Seeded %d users, %d novels, %d episodes, %d posts, %d comments and %d votes",
		summary.Users, summary.Novels, summary.Episodes, summary.Posts, summary.Comments, summary.Votes)
	return nil
}

func runClean(ctx context.Context, cfg *config.Config) error {
	log.Println("🧹 Cleaning seed data...")

	deps, err := container.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer deps.Cleanup(context.WithoutCancel(ctx))

	if err := seed.NewSeeder(deps.DB(), deps.Ledger(), seedFromEnv()).Clean(ctx); err != nil {
		return err
	}

	log.Println("✅ Seed data cleaned successfully!")
	return nil
}

// seedFromEnv returns the SEED variable, or 0 for a time based seed
func seedFromEnv() int64 {
	n, err := strconv.ParseInt(os.Getenv("SEED"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
