package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"termivoxed-billing/internal/auth"
	"termivoxed-billing/internal/catalog"
	"termivoxed-billing/internal/config"
	"termivoxed-billing/internal/controller"
	"termivoxed-billing/internal/razorpay"
	"termivoxed-billing/internal/repository"
	"termivoxed-billing/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting TermiVoxed billing service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Razorpay Key ID: %s", maskString(cfg.Razorpay.KeyID))

	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	authClient, err := setupFirebaseAuth(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase auth: %v", err)
	}

	razorpayClient := razorpay.NewClient(razorpay.Config{
		KeyID:         cfg.Razorpay.KeyID,
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
	})

	planCatalog := catalog.New()

	orderRepo := repository.NewOrderRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	userRepo := repository.NewUserRepository(db)

	orderService := service.NewOrderService(planCatalog, razorpayClient, orderRepo, userRepo)
	subscriptionService := service.NewSubscriptionService(planCatalog, razorpayClient, subscriptionRepo, userRepo)
	verificationService := service.NewVerificationService(planCatalog, razorpayClient, orderRepo)
	webhookService := service.NewWebhookService(razorpayClient, orderRepo, subscriptionRepo, userRepo)

	billingController := controller.NewBillingController(orderService, subscriptionService, verificationService)
	webhookController := controller.NewWebhookController(webhookService)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	billingController.RegisterRoutes(e, auth.Middleware(authClient))
	webhookController.RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "healthy"})
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

func setupDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", cfg.DB.GetDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func setupFirebaseAuth(cfg *config.Config) (auth.TokenVerifier, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}

	return app.Auth(ctx)
}

func maskString(s string) string {
	if len(s) <= 2 {
		return "**"
	}
	return s[:2] + "..." + s[len(s)-2:]
}
