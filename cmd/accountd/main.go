// Command accountd runs the account service over a sqlite-backed store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ad "github.com/accountd-io/accountd"
	oa2 "github.com/accountd-io/accountd/oauth2"
	gormstore "github.com/accountd-io/accountd/stores/gorm"
)

type config struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	DBPath       string        `env:"DB_PATH" envDefault:"accountd.db"`
	JWTSecret    string        `env:"JWT_SECRET,required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	PostLoginURL    string `env:"POST_LOGIN_URL" envDefault:"/"`
	LoginFailureURL string `env:"LOGIN_FAILURE_URL" envDefault:"/auth/google/fail"`
	LinkOnConflict  bool   `env:"LINK_ON_CONFLICT" envDefault:"false"`
}

func main() {
	app := &cli.App{
		Name:  "accountd",
		Usage: "End-user account service: registration, login, Google sign-in",
		Commands: []*cli.Command{
			serveCmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the account API over HTTP",
		Action: func(c *cli.Context) error {
			cfg, err := env.ParseAs[config]()
			if err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
			return serve(c.Context, &cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	svc := &ad.Service{
		Store:        gormstore.NewAccountStore(db),
		Hasher:       ad.NewHasher(cfg.BcryptCost),
		Issuer:       ad.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Cookie:       &ad.SessionCookie{Secure: cfg.CookieSecure, MaxAge: cfg.TokenTTL},
		PostLoginURL: cfg.PostLoginURL,
		Logger:       logger,
	}
	if cfg.LinkOnConflict {
		svc.ConflictPolicy = ad.ConflictLink
	}
	if cfg.GoogleClientID != "" {
		google := oa2.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, nil)
		google.FailureURL = cfg.LoginFailureURL
		google.Logger = logger
		svc.Google = google
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving account API", "addr", cfg.Addr, "google", svc.Google != nil)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
