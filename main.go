package main

import (
	"fmt"
	"net/http"

	"github.com/MentorLoop/LMS-Backend/internal/auth"
	"github.com/MentorLoop/LMS-Backend/internal/cache"
	"github.com/MentorLoop/LMS-Backend/internal/config"
	"github.com/MentorLoop/LMS-Backend/internal/db"
	"github.com/MentorLoop/LMS-Backend/internal/logging"
	"github.com/MentorLoop/LMS-Backend/internal/management"
	"github.com/MentorLoop/LMS-Backend/internal/middleware"
	"github.com/MentorLoop/LMS-Backend/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

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

	redisClient, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}
	store := cache.NewSessionStore(redisClient, cfg.TokenTTL)

	codec := token.NewCodec(cfg.AppSecretKey, cfg.TokenTTL)

	authHandler := &auth.Handler{
		DB:            gdb,
		Store:         store,
		Codec:         codec,
		Mailer:        &auth.LogMailer{Log: log},
		Log:           log,
		Site:          cfg.SiteDomain,
		ResetTTL:      cfg.TokenTTL,
		OnUserCreated: management.CreateProfileForUser,
	}
	mgmtHandler := &management.Handler{DB: gdb, Log: log, Auth: authHandler}

	mw := &middleware.Auth{
		Codec: codec,
		Store: store,
		Users: &auth.UserInfo{DB: gdb},
	}
	loginLimit := middleware.NewLoginRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst)

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	r.Mount("/user", authHandler.SetupRoutes(mw, loginLimit))
	r.Mount("/management", mgmtHandler.SetupRoutes(mw))

	log.Infof("Server listening on port :%s...", cfg.Port)
	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
