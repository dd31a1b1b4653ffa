package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/phishing-simulator/internal/api"
	"github.com/ignite/phishing-simulator/internal/config"
	"github.com/ignite/phishing-simulator/internal/mailing"
	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
	"github.com/ignite/phishing-simulator/internal/pkg/distlock"
	"github.com/ignite/phishing-simulator/internal/pkg/logger"
	"github.com/ignite/phishing-simulator/internal/repository/filestore"
	"github.com/ignite/phishing-simulator/internal/service/campaign"
	"github.com/ignite/phishing-simulator/internal/service/dispatch"
	svctracking "github.com/ignite/phishing-simulator/internal/service/tracking"
	"github.com/ignite/phishing-simulator/internal/token"
	"github.com/ignite/phishing-simulator/internal/tracking"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w", port, addr, err)
	}
	ln.Close()
	return nil
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fatal("failed to load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.LogPII)
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	// Tokens must be unguessable; refuse to start without an entropy source.
	tokens, err := token.NewGenerator()
	if err != nil {
		fatal("secure random source unavailable", err)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		fatal("pre-flight check failed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := connectRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := distlock.New(redisClient, cfg.Redis.LockTTL())

	var storeOpts []appendlog.Option
	if cfg.Storage.NoSync {
		logger.Warn("fsync disabled: acknowledged records may be lost on power failure")
		storeOpts = append(storeOpts, appendlog.WithoutSync())
	}
	stores, err := filestore.Open(cfg.Storage.DataDir, locker, storeOpts...)
	if err != nil {
		fatal("failed to open data stores", err)
	}
	defer stores.Close()
	logger.Info("data stores opened", "data_dir", cfg.Storage.DataDir, "correlations", stores.Correlations.Len())

	templates, err := mailing.LoadTemplates(cfg.Mail.Subject, cfg.Mail.HTMLTemplatePath, cfg.Mail.LandingPath)
	if err != nil {
		fatal("failed to load templates", err)
	}
	renderer, err := mailing.NewRenderer(templates)
	if err != nil {
		fatal("failed to compile templates", err)
	}
	transport, err := newTransport(ctx, cfg)
	if err != nil {
		fatal("failed to initialize mail transport", err)
	}
	messenger := mailing.NewMessenger(renderer, transport, cfg.Mail.FromEmail, cfg.Mail.FromName)

	campaigns := campaign.NewService(stores.Campaigns)
	orchestrator := dispatch.NewOrchestrator(dispatch.Deps{
		Tokens:       tokens,
		Correlations: stores.Correlations,
		Events:       stores.Events,
		Campaigns:    campaigns,
		Messenger:    messenger,
		Links:        mailing.NewLinkBuilder(cfg.Tracking.PublicBaseURL),
	}, dispatch.Config{
		Concurrency: cfg.Dispatch.Concurrency,
		SendTimeout: cfg.Dispatch.Timeout(),
	})
	recorder := svctracking.NewRecorder(stores.Correlations, stores.Events, stores.Credentials, stores.Campaigns)

	var publisher tracking.EventPublisher
	var sqsPublisher *tracking.SQSPublisher
	if cfg.Tracking.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Tracking.SQSRegion))
		if err != nil {
			fatal("aws config for SQS", err)
		}
		sqsPublisher = tracking.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL)
		publisher = sqsPublisher
		logger.Info("forwarding tracking events to SQS", "queue", cfg.Tracking.SQSQueueURL)
	}

	trackingHandler := tracking.NewHandler(recorder, renderer, publisher, tracking.Config{
		PayloadPath:      cfg.Mail.PayloadPath,
		PayloadName:      cfg.Mail.PayloadName,
		LoginRedirectURL: cfg.Mail.LoginRedirectURL,
	})
	handlers := api.NewHandlers(campaigns, orchestrator, recorder)
	router := api.SetupRoutes(handlers, trackingHandler.Routes(), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIToken:       cfg.Server.APIToken,
	})
	if cfg.Server.APIToken == "" {
		logger.Warn("operator API is unauthenticated; set server.api_token")
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server listening",
			"addr", srv.Addr,
			"transport", transport.Name(),
			"public_base_url", cfg.Tracking.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if sqsPublisher != nil {
		sqsPublisher.Wait()
	}
	logger.Info("server stopped")
}

func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("Redis not configured; using in-process campaign locks")
		return nil
	}
	var client *redis.Client
	opts, err := redis.ParseURL(url)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: url})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis connection failed; falling back to in-process locks", "error", err)
		client.Close()
		return nil
	}
	logger.Info("Redis connected; distributed campaign locks enabled")
	return client
}

func newTransport(ctx context.Context, cfg *config.Config) (mailing.Transport, error) {
	switch cfg.Mail.Transport {
	case "ses":
		return mailing.NewSESTransport(ctx, cfg.SES.Region, cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.ConfigurationSet)
	default:
		return mailing.NewSMTPTransport(mailing.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			RequireTLS:         cfg.SMTP.RequireTLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		}), nil
	}
}
