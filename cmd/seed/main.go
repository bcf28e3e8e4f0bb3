// Command seed grants credits to a user profile, creating it when missing.
// Development tool: lets a local stack run the pipeline without going
// through a checkout.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"essaygenius/internal/config"
	pg "essaygenius/internal/infra/db/postgres"
	"essaygenius/internal/domain/ports/repository"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "", "user id to credit")
	email := flag.String("email", "", "email recorded when creating the profile")
	amount := flag.Int("credits", 10, "credits to grant")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	profiles := pg.NewProfileRepo(pool)
	if err := profiles.CreateIfAbsent(ctx, repository.NoTX, *userID, *email, 0); err != nil {
		log.Fatalf("ensure profile: %v", err)
	}
	balance, err := profiles.Credit(ctx, repository.NoTX, *userID, *amount)
	if err != nil {
		log.Fatalf("grant credits: %v", err)
	}
	log.Printf("user %s now has %d credits", *userID, balance)
}
