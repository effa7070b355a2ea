package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wasteroute-backend/internal/config"
	"wasteroute-backend/internal/database"
	"wasteroute-backend/internal/handlers"
	"wasteroute-backend/internal/middleware"
	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/rabbitmq"
	"wasteroute-backend/internal/services"
	"wasteroute-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 WASTEROUTE BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	cfg, err := config.Load()
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Invalid configuration")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Printf("❌ FATAL ERROR: Database migrations failed: %v", err)
		log.Fatal(err)
	}

	store := database.NewStore(db)

	if cfg.SeedUsers {
		if err := database.SeedUsers(ctx, store); err != nil {
			log.Printf("❌ FATAL ERROR: User seeding failed: %v", err)
			log.Fatal(err)
		}
	}

	// Firebase Cloud Messaging: base64 credentials (cloud deployments) win
	// over the file path (local development)
	status := handlers.SystemStatus{}

	var notifier services.Notifier = services.UnavailableNotifier{}
	if cfg.FirebaseCredentialsBase64 != "" {
		fcm, err := services.NewFCMNotifierFromBase64(ctx, cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
		} else {
			notifier = fcm
			status.PushEnabled = true
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcm, err := services.NewFCMNotifier(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
		} else {
			notifier = fcm
			status.PushEnabled = true
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()
	status.Clients = wsHub
	log.Println("✅ WebSocket hub started")

	dispatchOpts := []services.DispatcherOption{
		services.WithBroadcaster(wsHub),
		services.WithDispatchTimeout(cfg.NotificationTimeout),
	}
	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.Printf("⚠️  Failed to connect to AMQP broker: %v (event publishing disabled)", err)
		} else {
			defer publisher.Close()
			dispatchOpts = append(dispatchOpts, services.WithEventPublisher(publisher))
			status.Broker = publisher
			log.Printf("✅ Publishing lifecycle events to exchange %s", cfg.AMQPExchange)
		}
	}
	dispatcher := services.NewDispatcher(notifier, store, dispatchOpts...)

	var provider services.Geocoder
	switch {
	case cfg.GoogleMapsAPIKey != "":
		provider = services.NewGoogleGeocoder(cfg.GoogleMapsAPIKey, cfg.GeocodeTimeout)
		log.Println("✅ Reverse geocoding enabled (Google Maps)")
	case cfg.HEREAPIKey != "":
		provider = services.NewHEREGeocoder(cfg.HEREAPIKey, cfg.GeocodeTimeout)
		log.Println("✅ Reverse geocoding enabled (HERE)")
	default:
		log.Println("⚠️  No geocoding API key set, reports are stored without an address")
	}
	var geocoder services.Geocoder
	if provider != nil {
		cache := services.NewCachingGeocoder(provider, cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL)
		geocoder = cache
		status.GeocodeCache = cache
	}

	lifecycle := services.NewLifecycleService(store, dispatcher)
	intake := services.NewIntakeService(store, services.NewKeywordClassifier(), geocoder, cfg.GeocodeTimeout, dispatcher)
	routes := services.NewRouteOptimizer(store,
		services.WithAverageSpeed(cfg.RouteAvgSpeedKmh),
		services.WithHandlingMinutes(cfg.PickupHandlingMinutes),
		services.WithLocation(cfg.RouteLocation),
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Public routes
	r.Post("/api/auth/login", handlers.Login(store, cfg.JWTSecret, cfg.JWTExpiry))
	r.Post("/api/auth/register", handlers.Register(store))

	// WebSocket authenticates with ?token=
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Post("/api/me/fcm-token", handlers.RegisterFCMToken(store))
		r.Post("/api/logs/diagnostic", handlers.ReceiveDiagnosticLog())

		r.Get("/api/reports", handlers.ListReports(store))
		r.Get("/api/reports/{id}", handlers.GetReport(store))
		r.Post("/api/reports/{id}/cancel", handlers.CancelReport(lifecycle))

		r.With(middleware.RequireRole(models.RoleCitizen)).
			Post("/api/reports", handlers.CreateReport(intake))

		// Collectors and admins; collectors only see their own data
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleCollector, models.RoleAdmin))
			r.Get("/api/collectors/{id}/route", handlers.GetCollectorRoute(routes))
			r.Get("/api/collectors/{id}/statistics", handlers.GetCollectorStatistics(routes))
			r.Get("/api/collectors/{id}/reports", handlers.ListCollectorReports(store))
		})

		r.Route("/api/pickups", func(r chi.Router) {
			r.Get("/{id}", handlers.GetPickupLog(lifecycle))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleCollector))
				r.Post("/start", handlers.StartPickup(lifecycle))
				r.Post("/{id}/complete", handlers.CompletePickup(lifecycle))
				r.Post("/{id}/fail", handlers.FailPickup(lifecycle))
			})
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/status", handlers.GetSystemStatus(status))
			r.Post("/users", handlers.CreateUser(store))
			r.Post("/reports/{id}/assign", handlers.AssignCollector(lifecycle))
			r.Post("/reports/{id}/resolve", handlers.ResolveReport(lifecycle))
			r.Post("/collectors/{id}/deactivate", handlers.DeactivateCollector(lifecycle))
		})
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("═══════════════════════════════════════════════════════════════════")
		log.Printf("✅ Server listening on :%s", cfg.Port)
		log.Println("═══════════════════════════════════════════════════════════════════")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown: %v", err)
	}
	dispatcher.Wait()
	log.Println("👋 Server stopped")
}
