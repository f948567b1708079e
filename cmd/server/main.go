package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flow-platform/config"
	"flow-platform/internal/api"
	"flow-platform/internal/broker"
	"flow-platform/internal/redisclient"
	"flow-platform/internal/service"
	"flow-platform/internal/store"
	"flow-platform/internal/token"
	"flow-platform/internal/transport"
	"flow-platform/internal/util"
	"flow-platform/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting flow platform")

	tp, err := util.InitTracer("flow-platform", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	bus := transport.NewClient(producer, cfg.Transport.ReplyTopic, cfg.Transport.RequestTimeout)
	codec := token.NewCodec(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	authService := service.NewAuthService(db, bus, codec, cfg.Auth.BcryptCost)
	userService := service.NewUserService(db, redisClient, bus)
	billingService := service.NewBillingService(db, redisClient, cfg.Billing)
	checkoutSaga := service.NewCheckoutSaga(db, redisClient, bus)
	orderService := service.NewOrderService(db, redisClient, checkoutSaga)
	paymentService := service.NewPaymentService(db, bus, cfg.Payments)
	notificationService := service.NewNotificationService()

	pdfService, err := service.NewPDFService(bus, cfg.Documents.OutputDir)
	if err != nil {
		log.Fatalf("Failed to initialize documents service: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	replyConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Transport.ReplyTopic, cfg.Kafka.ConsumerGroup+"-replies")
	replyWorker := worker.NewReplyWorker(replyConsumer, bus)
	go func() {
		if err := replyWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Reply worker error: %v", err)
		}
	}()

	mount := func(name string, services ...interface {
		Mount(*transport.Responder)
	}) *worker.ResponderWorker {
		responder := transport.NewResponder(producer)
		for _, svc := range services {
			svc.Mount(responder)
		}
		return worker.NewResponderWorker(name, cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, responder)
	}

	workers := []*worker.ResponderWorker{
		mount("auth", authService),
		mount("users", userService),
		mount("billing", billingService),
		mount("orders", orderService),
		mount("payments", paymentService),
		mount("documents", pdfService),
		mount("notifications", notificationService),
	}
	for _, w := range workers {
		w := w
		go func() {
			if err := w.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				log.Printf("Worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(bus, codec, cfg.Auth)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	replyWorker.Stop()
	for _, w := range workers {
		w.Stop()
	}

	log.Println("Server exited")
}
