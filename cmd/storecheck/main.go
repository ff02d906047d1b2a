package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/kapu/league-tracker-go/internal/cache"
	"github.com/kapu/league-tracker-go/internal/remote"
)

// storecheck verifies connectivity to both backing stores and prints what
// each one currently holds.
func main() {
	redisURL := os.Getenv("REDIS_URL")
	databaseURL := os.Getenv("DATABASE_URL")

	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := cache.NewStoreFromURL(redisURL, os.Getenv("CACHE_NAMESPACE"))
	if err != nil {
		log.Fatalf("cache error: %v", err)
	}
	defer store.Close()

	leagues, err := store.Leagues(ctx)
	if err != nil {
		log.Printf("cache leagues error: %v", err)
	} else {
		log.Printf("cache ok: %d leagues", len(leagues))
	}
	tournaments, err := store.Tournaments(ctx)
	if err != nil {
		log.Printf("cache tournaments error: %v", err)
	} else {
		log.Printf("cache ok: %d tournaments", len(tournaments))
	}
	done, err := store.MigrationDone(ctx)
	if err != nil {
		log.Printf("migration flag error: %v", err)
	} else {
		log.Printf("migration done: %v", done)
	}

	if databaseURL == "" {
		log.Println("DATABASE_URL not set; skipping remote check")
		return
	}

	repo, err := remote.NewRepository(databaseURL)
	if err != nil {
		log.Fatalf("remote error: %v", err)
	}
	defer repo.Close()

	remoteLeagues, err := repo.LoadLeagues(ctx, "", "")
	if err != nil {
		log.Printf("remote leagues error: %v", err)
	} else {
		log.Printf("remote ok: %d leagues", len(remoteLeagues))
	}
	remoteTournaments, err := repo.LoadTournaments(ctx, "", "")
	if err != nil {
		log.Printf("remote tournaments error: %v", err)
	} else {
		log.Printf("remote ok: %d tournaments", len(remoteTournaments))
	}
}
