package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/derekslarson/auth-service/auth"
	"github.com/derekslarson/auth-service/authflow"
	"github.com/derekslarson/auth-service/clients"
	"github.com/derekslarson/auth-service/federation"
	"github.com/derekslarson/auth-service/internal/config"
	"github.com/derekslarson/auth-service/internal/httpx"
	"github.com/derekslarson/auth-service/internal/metrics"
	"github.com/derekslarson/auth-service/jwks"
	"github.com/derekslarson/auth-service/notification"
	"github.com/derekslarson/auth-service/redisrepo"
	"github.com/derekslarson/auth-service/server"
	"github.com/derekslarson/auth-service/sessions"
	"github.com/derekslarson/auth-service/token"
	"github.com/derekslarson/auth-service/users"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg)
	displayAppname(cfg.AppName)

	ctx := context.Background()

	repos, clientRepo, sessionRepo, keystoreRepo, err := buildRepos(cfg)
	if err != nil {
		return err
	}

	tokenService, err := token.NewService(sessionRepo, keystoreRepo, cfg.Issuer,
		token.WithExpiry(cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
	if err != nil {
		return err
	}

	if err := bootstrapKeystore(ctx, tokenService, keystoreRepo); err != nil {
		return err
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(repos, tokenService, providers, auth.Senders{
		Email: notification.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom),
		SMS:   notification.NewSMSSender(cfg.SMSGatewayURL, cfg.SMSAPIKey),
	}, cfg.LoginUIURL)
	if err != nil {
		return err
	}

	rotationCtx, stopRotation := context.WithCancel(ctx)
	defer stopRotation()
	go rotateKeysLoop(rotationCtx, tokenService, cfg.KeyRotationInterval)

	limiter := httpx.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	handler := httpx.Chain(
		server.New(cfg, authService, clientRepo, log.Logger),
		httpx.Recover(log.Logger),
		httpx.Logging(log.Logger),
		limiter.Middleware,
		httpx.SecurityHeaders,
		httpx.MaxBodyBytes(cfg.MaxBodyBytes),
	)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// buildRepos wires either the Redis-backed repositories or the in-memory ones,
// depending on whether a Redis address is configured.
func buildRepos(cfg *config.Config) (auth.Repos, clients.Repo, sessions.Repo, jwks.Repo, error) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("no REDIS_ADDR configured, using in-memory repositories")
		clientRepo := clients.NewInMemoryRepo()
		return auth.Repos{
			Attempts: authflow.NewInMemoryRepo(cfg.AuthAttemptTTL),
			Clients:  clientRepo,
			Users:    users.NewInMemoryRepo(),
		}, clientRepo, sessions.NewInMemoryRepo(), jwks.NewInMemoryRepo(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return auth.Repos{}, nil, nil, nil, errors.Wrap(err, "redis ping")
	}

	clientRepo := redisrepo.NewClientRepo(client)
	return auth.Repos{
		Attempts: redisrepo.NewAttemptRepo(client, cfg.AuthAttemptTTL),
		Clients:  clientRepo,
		Users:    redisrepo.NewUserRepo(client),
	}, clientRepo, redisrepo.NewSessionRepo(client), redisrepo.NewKeystoreRepo(client), nil
}

// bootstrapKeystore generates the initial signing-key set when none exists
// yet. A version conflict means another replica won the bootstrap race.
func bootstrapKeystore(ctx context.Context, tokenService *token.Service, keystoreRepo jwks.Repo) error {
	_, err := keystoreRepo.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jwks.ErrNotFound) {
		return errors.Wrap(err, "keystore read")
	}

	log.Info().Msg("bootstrapping signing-key set")
	if err := tokenService.RotateKeys(ctx); err != nil {
		return errors.Wrap(err, "keystore bootstrap")
	}
	return nil
}

func rotateKeysLoop(ctx context.Context, tokenService *token.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tokenService.RotateKeys(ctx); err != nil {
				log.Error().Err(err).Msg("signing-key rotation failed")
				continue
			}
			metrics.KeyRotated()
			log.Info().Msg("signing keys rotated")
		}
	}
}

func buildProviders(ctx context.Context, cfg *config.Config) (federation.Registry, error) {
	providers := federation.Registry{}

	if cfg.GoogleClientID != "" {
		google, err := federation.NewOIDCProvider(ctx, "google", cfg.GoogleIssuer, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.ExternalCallbackURL)
		if err != nil {
			return nil, errors.Wrap(err, "google provider")
		}
		providers[google.Name()] = google
	}

	if cfg.SlackClientID != "" {
		slack, err := federation.NewEndpointProvider("slack", federation.EndpointConfig{
			ClientID:     cfg.SlackClientID,
			ClientSecret: cfg.SlackClientSecret,
			RedirectURL:  cfg.ExternalCallbackURL,
			AuthorizeURL: cfg.SlackAuthorizeURL,
			TokenURL:     cfg.SlackTokenURL,
			UserInfoURL:  cfg.SlackUserInfoURL,
		})
		if err != nil {
			return nil, errors.Wrap(err, "slack provider")
		}
		providers[slack.Name()] = slack
	}

	return providers, nil
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
