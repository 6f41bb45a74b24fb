// Command create_user adds a staff account from the shell.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"invictcrm/models"
	"invictcrm/pkg/auth"
	"invictcrm/pkg/config"
	"invictcrm/pkg/store"
	"invictcrm/pkg/users"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <email> <password> [STAFF|ADMIN|SUPER_ADMIN]")
		os.Exit(2)
	}
	email, password := os.Args[1], os.Args[2]
	role := models.RoleStaff
	if len(os.Args) > 3 {
		role = models.Role(strings.ToUpper(os.Args[3]))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	// The shell is trusted with every role.
	operator := auth.Identity{Role: models.RoleSuperAdmin}
	svc := users.NewService(db, slog.Default())
	res, err := svc.Create(context.Background(), operator, users.CreateInput{
		Email:     email,
		Password:  password,
		FirstName: strings.Split(email, "@")[0],
		LastName:  "-",
		Role:      role,
	})
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created %s user %s id=%s\n", res.User.Role, res.User.Email, res.User.ID)
}
