package main

import (
	"context"
	"log/slog"

	"invictcrm/pkg/config"
	"invictcrm/pkg/store"
	"invictcrm/pkg/users"
)

// initDB migrates the schema when asked and seeds the first super admin.
// Migration failures on individual tables are logged by Migrate; the server
// still starts so a read-only role can run it.
func initDB(ctx context.Context, db *store.DB, cfg config.Config, migrate bool, log *slog.Logger) error {
	if migrate {
		if err := db.Migrate(ctx, log); err != nil {
			log.Warn("schema migration incomplete", "error", err)
		}
	}
	return seedDB(ctx, db, cfg.SeedAdminEmail, cfg.SeedAdminPassword, log)
}

// seedDB creates a SUPER_ADMIN from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD.
// Nothing happens when either is unset.
func seedDB(ctx context.Context, s store.Users, email, password string, log *slog.Logger) error {
	if email == "" || password == "" {
		return nil
	}
	created, err := users.SeedSuperAdmin(ctx, s, email, password)
	if err != nil {
		return err
	}
	if created {
		log.Info("seeded super admin", "email", email)
	}
	return nil
}
