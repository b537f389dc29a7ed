package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/cache"
	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/db"
	"github.com/questlogger/questlogger/internal/gamification"
	"github.com/questlogger/questlogger/internal/handlers"
	"github.com/questlogger/questlogger/internal/llm"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/middleware"
	"github.com/questlogger/questlogger/internal/service"
	"github.com/questlogger/questlogger/internal/speech"
	"github.com/questlogger/questlogger/internal/store"
	"github.com/questlogger/questlogger/internal/stripe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New("server", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer dbConn.Close()

	if err := db.Migrate(dbConn); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	sharedCache := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	defer sharedCache.Close()
	if sharedCache.Enabled() {
		log.Info().Str("addr", cfg.RedisAddr).Msg("shared note cache enabled")
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)
	stripeSvc := stripe.NewService(stripe.Config{
		SecretKey:      cfg.StripeSecretKey,
		WebhookSecret:  cfg.StripeWebhookSecret,
		MonthlyPriceID: cfg.StripeMonthlyPriceID,
		AnnualPriceID:  cfg.StripeAnnualPriceID,
	})

	var llmClient service.LLM
	if cfg.EnableLLMFeatures && cfg.OpenRouterAPIKey != "" {
		llmClient = llm.New(cfg)
	}

	var transcriber speech.Transcriber
	if cfg.EnableVoice && cfg.DeepgramAPIKey != "" {
		transcriber = speech.NewDeepgramClient(cfg)
	}

	users := store.NewUserRepository(dbConn)
	notes := store.NewNoteRepository(dbConn)
	subs := store.NewSubscriptionRepository(dbConn)
	quests := store.NewQuestRepository(dbConn)

	game := gamification.New(cfg)

	noteSvc := service.NewNoteService(notes, subs, users, llmClient, transcriber, sharedCache, cfg, log)
	subSvc := service.NewSubscriptionService(subs, users, stripeSvc, cfg, log)
	questSvc := service.NewQuestService(quests, users, game, log)

	notesHandler := handlers.NewNotesHandler(noteSvc)
	subHandler := handlers.NewSubscriptionHandler(subSvc)
	questsHandler := handlers.NewQuestsHandler(questSvc)
	voiceHandler := handlers.NewVoiceHandler(cfg)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))

	r.HandleFunc("/healthz", handlers.HealthHandler(dbConn)).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", handlers.RegisterHandler(users, jwtService)).Methods("POST")
	api.HandleFunc("/auth/login", handlers.LoginHandler(users, jwtService)).Methods("POST")
	api.HandleFunc("/notes/shared/{share_id}", notesHandler.Shared).Methods("GET")
	api.HandleFunc("/subscription/webhook", subHandler.Webhook).Methods("POST")
	api.HandleFunc("/subscription/pricing", subHandler.Pricing).Methods("GET")

	// Authenticated routes
	s := api.PathPrefix("").Subrouter()
	s.Use(auth.JWTMiddleware(jwtService))

	s.HandleFunc("/users/me", handlers.MeHandler(users)).Methods("GET")

	s.HandleFunc("/notes", notesHandler.Create).Methods("POST")
	s.HandleFunc("/notes", notesHandler.List).Methods("GET")
	s.HandleFunc("/notes/folders/list", notesHandler.Folders).Methods("GET")
	s.HandleFunc("/notes/tags/list", notesHandler.Tags).Methods("GET")
	s.HandleFunc("/notes/{id:[0-9]+}", notesHandler.Get).Methods("GET")
	s.HandleFunc("/notes/{id:[0-9]+}", notesHandler.Update).Methods("PUT")
	s.HandleFunc("/notes/{id:[0-9]+}", notesHandler.Delete).Methods("DELETE")
	s.HandleFunc("/notes/{id:[0-9]+}/share", notesHandler.Share).Methods("POST")
	s.HandleFunc("/notes/{id:[0-9]+}/share", notesHandler.Unshare).Methods("DELETE")
	s.HandleFunc("/notes/{id:[0-9]+}/export", notesHandler.Export).Methods("GET")
	s.HandleFunc("/notes/{id:[0-9]+}/process", notesHandler.Process).Methods("POST")

	voice := s.PathPrefix("/notes/voice").Subrouter()
	voice.Use(middleware.RecordingQuota(subs))
	voice.HandleFunc("", notesHandler.CreateVoice).Methods("POST")

	s.HandleFunc("/voice/providers", voiceHandler.Providers).Methods("GET")
	s.HandleFunc("/voice/languages", voiceHandler.Languages).Methods("GET")

	s.HandleFunc("/subscription/status", subHandler.Status).Methods("GET")
	s.HandleFunc("/subscription/subscribe", subHandler.Subscribe).Methods("POST")
	s.HandleFunc("/subscription/unsubscribe", subHandler.Unsubscribe).Methods("POST")
	s.HandleFunc("/subscription/payment-method", subHandler.UpdatePaymentMethod).Methods("PUT")
	s.HandleFunc("/subscription/payment-history", subHandler.PaymentHistory).Methods("GET")
	s.HandleFunc("/subscription/billing-cycle", subHandler.ChangeBillingCycle).Methods("PUT")
	s.HandleFunc("/subscription/promo-code", subHandler.ApplyPromoCode).Methods("POST")
	s.HandleFunc("/subscription/create-checkout", subHandler.CreateCheckout).Methods("POST")
	s.HandleFunc("/subscription/trial-notification", subHandler.TrialNotification).Methods("GET")

	s.HandleFunc("/quests", questsHandler.Create).Methods("POST")
	s.HandleFunc("/quests", questsHandler.List).Methods("GET")
	s.HandleFunc("/quests/{id:[0-9]+}", questsHandler.Get).Methods("GET")
	s.HandleFunc("/quests/{id:[0-9]+}", questsHandler.Delete).Methods("DELETE")
	s.HandleFunc("/quests/{id:[0-9]+}/complete", questsHandler.Complete).Methods("POST")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
