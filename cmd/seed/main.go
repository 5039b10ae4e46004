package main

import (
	"errors"
	"os"
	"time"

	"github.com/MentorLoop/LMS-Backend/internal/auth"
	"github.com/MentorLoop/LMS-Backend/internal/config"
	"github.com/MentorLoop/LMS-Backend/internal/db"
	"github.com/MentorLoop/LMS-Backend/internal/logging"
	"github.com/MentorLoop/LMS-Backend/internal/management"
	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Seeds the initial superuser admin account. Username, email and password
// come from SEED_ADMIN_* env vars; re-running against a seeded database is a
// no-op.
func main() {
	_ = godotenv.Load(".env.local")
	log := logging.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := auth.Init(gdb); err != nil {
		log.Fatal(err)
	}
	if err := management.Init(gdb); err != nil {
		log.Fatal(err)
	}

	username := envOr("SEED_ADMIN_USERNAME", "admin")
	email := envOr("SEED_ADMIN_EMAIL", "admin@localhost")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	var existing auth.User
	err = gdb.First(&existing, "username = ?", username).Error
	if err == nil {
		log.Infof("admin %q already exists, nothing to do", username)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatal(err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal(err)
	}
	// Stamp last_login so the account skips the first-login link flow; the
	// seeded password is set directly, not mailed.
	now := time.Now()
	admin := auth.User{
		UserID:         uuid.New().String(),
		Username:       username,
		FirstName:      "Site",
		LastName:       "Admin",
		Email:          email,
		Mobile:         envOr("SEED_ADMIN_MOBILE", "9999999999"),
		HashedPassword: hashed,
		Role:           utils.RoleAdmin,
		IsSuperuser:    true,
		LastLogin:      &now,
	}
	if err := gdb.Create(&admin).Error; err != nil {
		log.Fatal(err)
	}

	log.Infof("admin %q seeded", username)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
