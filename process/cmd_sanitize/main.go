package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"invictcrm/pkg/config"
	"invictcrm/pkg/store"
	"invictcrm/pkg/users"
	"invictcrm/process/sanitize"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed the super admin from SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD")
		tables = flag.String("tables", strings.Join(sanitize.DefaultTables, ","), "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("DB_DSN must be set to run db_sanitize")
	}
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existing, err := sanitize.Existing(ctx, db.Gorm(), sanitize.ParseTables(*tables, slog.Default()))
	if err != nil {
		log.Fatal(err)
	}
	if len(existing) == 0 {
		log.Println("no requested tables present in the database; nothing to do")
		return
	}
	fmt.Println("Tables considered for truncation:")
	for _, t := range existing {
		fmt.Printf(" - %s\n", t)
	}
	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}
	if err := sanitize.Truncate(ctx, db.Gorm(), existing); err != nil {
		log.Fatalf("truncate failed: %v", err)
	}
	log.Println("Truncate completed.")

	if *reseed {
		if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
			log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required for --reseed")
		}
		if _, err := users.SeedSuperAdmin(ctx, db, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			log.Fatalf("reseed failed: %v", err)
		}
		log.Println("Reseed completed.")
	}
}
