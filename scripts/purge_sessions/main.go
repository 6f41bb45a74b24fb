package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"invictcrm/pkg/config"
	"invictcrm/pkg/store"
)

func main() {
	grace := flag.Duration("grace", 0, "keep sessions that expired less than this long ago")
	dry := flag.Bool("dry-run", true, "Preview actions without modifying the DB")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("DB_DSN must be set")
	}
	cutoff := time.Now().Add(-*grace)
	fmt.Printf("Planned action: DELETE sessions that expired before %s\n", cutoff.Format(time.RFC3339))
	if *dry {
		fmt.Println("dry-run: no changes made. Use --dry-run=false to execute.")
		return
	}

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()
	n, err := db.DeleteExpiredSessions(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}
	fmt.Printf("purged %d expired sessions\n", n)
}
