package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rentdesk/sessiongate/identity"
	"github.com/rentdesk/sessiongate/internal/config"
	"github.com/rentdesk/sessiongate/server"
	"github.com/rentdesk/sessiongate/session"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	provider, err := buildProvider(c)
	if err != nil {
		return fmt.Errorf("buildProvider: %w", err)
	}

	gateway, err := server.New(c, provider, session.NewInMemorySessionRepo())
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: gateway}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildProvider wires the identity provider: the real OIDC issuer when a
// token endpoint is configured, otherwise a local credential table in DEV.
func buildProvider(c config.Config) (identity.SignInProvider, error) {
	if c.GetIdentityTokenURL() == "" && c.GetEnv() == "DEV" {
		local := identity.NewLocalProvider([]byte(config.GetEnv("LOCAL_IDP_SECRET", "dev-secret")))
		if email := os.Getenv("DEV_USER_EMAIL"); email != "" {
			if err := local.AddUser(email, os.Getenv("DEV_USER_PASSWORD")); err != nil {
				return nil, err
			}
		}
		log.Warn().Msg("no identity provider configured, using local DEV provider")
		return local, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return identity.NewProvider(ctx,
		c.GetIdentityIssuerURL(),
		c.GetIdentityClientID(),
		c.GetIdentityClientSecret(),
		c.GetIdentityTokenURL(),
	)
}

func configureLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(httpServer *http.Server) error {
	log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
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
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
