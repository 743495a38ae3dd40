package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/drag/pkg/api"
	authproviders "github.com/cbodonnell/drag/pkg/auth/providers"
	"github.com/cbodonnell/drag/pkg/config"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/repositories"
	"github.com/cbodonnell/drag/pkg/version"
)

func main() {
	port := flag.Int("port", 9090, "port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	envFile := flag.String("env-file", ".env", "Optional file with DRAG_* settings")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting lobby server version %s", version.Get())
	ctx := context.Background()

	if err := config.LoadDotEnv(*envFile); err != nil {
		panic(fmt.Sprintf("Failed to load %s: %v", *envFile, err))
	}
	cfg := config.Load()

	s, err := config.OpenStore(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open %s store: %v", cfg.Store, err))
	}
	defer s.Close()

	history, err := repositories.Open(ctx, cfg.HistoryURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to open history: %v", err))
	}
	defer history.Close(ctx)

	apiServerOpts := api.NewAPIServerOptions{
		Port:    *port,
		Store:   s,
		History: history,
	}
	if cfg.FirebaseProjectID != "" {
		authProvider, err := authproviders.NewFirebaseAuthProvider(ctx, authproviders.NewFirebaseAuthProviderOptions{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentials,
			AllowAnonymous:  cfg.HistoryAllowAnonymous,
		})
		if err != nil {
			panic(fmt.Sprintf("Failed to create Firebase auth provider: %v", err))
		}
		apiServerOpts.AuthProvider = authProvider
	} else {
		log.Warn("No firebase project configured, history is served without authentication")
	}
	tlsCertFile := os.Getenv("DRAG_API_TLS_CERT_FILE")
	tlsKeyFile := os.Getenv("DRAG_API_TLS_KEY_FILE")
	if tlsCertFile != "" && tlsKeyFile != "" {
		apiServerOpts.TLS = &api.TLSConfig{
			CertFile: tlsCertFile,
			KeyFile:  tlsKeyFile,
		}
	}
	server := api.NewAPIServer(apiServerOpts)
	go server.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		log.Error("Failed to stop server: %v", err)
	}
}
