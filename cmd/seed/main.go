// seed creates the initial admin account from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD.
// Idempotent: does nothing if the email is already registered.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"fitlift/backend/internal/config"
	"fitlift/backend/internal/db"
	"fitlift/backend/internal/security"
	"fitlift/backend/internal/user/domain"
	"fitlift/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	users := repository.NewPostgresRepository(sqlDB)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, cfg.SeedAdminEmail)
	if err != nil {
		log.Fatalf("lookup admin: %v", err)
	}
	if existing != nil {
		log.Printf("admin %s already exists; nothing to do", cfg.SeedAdminEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Email:        cfg.SeedAdminEmail,
		Nickname:     cfg.SeedAdminNickname,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.Printf("created admin %s (%s)", admin.Email, admin.ID)
}
