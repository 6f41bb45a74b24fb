package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"invictcrm/pkg/auth"
	"invictcrm/pkg/config"
	"invictcrm/pkg/store"
)

func main() {
	email := flag.String("email", "", "email of the account to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	keepSessions := flag.Bool("keep-sessions", false, "do not sign the user out everywhere")
	flag.Parse()
	if *email == "" || *password == "" {
		log.Fatal("--email and --password are required")
	}
	if err := auth.ValidatePassword(*password); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	normalized, err := auth.NormalizeEmail(*email)
	if err != nil {
		log.Fatal(err)
	}
	user, err := db.GetUserByEmail(ctx, normalized)
	if err != nil {
		log.Fatalf("user not found: %v", err)
	}
	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	if _, err := db.UpdateUser(ctx, user.ID, store.UserPatch{PasswordHash: hash}); err != nil {
		log.Fatalf("update failed: %v", err)
	}
	if !*keepSessions {
		n, err := db.DeleteUserSessions(ctx, user.ID)
		if err != nil {
			log.Fatalf("revoke sessions: %v", err)
		}
		fmt.Printf("revoked %d sessions\n", n)
	}
	fmt.Printf("Password reset for user %s\n", user.Email)
}
