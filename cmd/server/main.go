// Command server runs the remoteStorage HTTP server: storage API,
// WebFinger discovery, the OAuth implicit-grant flow, and the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"remotestorage/internal/auth"
	"remotestorage/internal/config"
	"remotestorage/internal/httpapi"
	"remotestorage/internal/middleware"
	"remotestorage/internal/security"
	"remotestorage/internal/storage/database"
	"remotestorage/internal/storage/engine"
	"remotestorage/internal/storage/engine/filesystem"
	"remotestorage/internal/storage/engine/localstore"
	"remotestorage/internal/storage/engine/memory"
)

func main() {
	settingsPath := flag.String("config", "./settings.toml", "path to the TOML settings file")
	flag.Parse()

	_ = godotenv.Load()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	logger, closeLog := setupLogger(settings)
	defer closeLog()
	slog.SetDefault(logger)

	ctx := context.Background()

	registry := engine.NewRegistry()
	registry.Register("memory", memory.Factory)
	registry.Register("filesystem", filesystem.Factory)
	registry.Register("localstore", localstore.Factory(ctx))

	eng, err := registry.Build(settings.Engine, engineSettings(settings))
	if err != nil {
		log.Fatalf("build storage engine: %v", err)
	}

	encryptionKey, err := settings.EncryptionKey()
	if err != nil {
		log.Fatalf("parse encryption key: %v", err)
	}

	var userStore *security.Store
	if settings.UserfilePath != "" {
		userStore = security.NewStore(settings.UserfilePath, encryptionKey)
	}

	db, err := database.New(eng, database.Settings{
		TokenLifetime: time.Duration(settings.TokenLifetimeSeconds) * time.Second,
		UserStore:     userStore,
	}, logger)
	if err != nil {
		log.Fatalf("build database: %v", err)
	}

	sessionIssuer, err := auth.NewSessionIssuer(settings.AdminSessionSecretOrEnv(), logger)
	if err != nil {
		log.Fatalf("build admin session issuer: %v", err)
	}

	serverAddr := fmt.Sprintf("https://%s/", settings.Domain)
	if settings.DomainSuffix != "" {
		serverAddr = fmt.Sprintf("https://%s%s/", settings.Domain, settings.DomainSuffix)
	}

	storageHandler := httpapi.NewStorageHandler(db, logger)
	webfingerHandler := httpapi.NewWebfingerHandler(serverAddr)
	oauthHandler := httpapi.NewOauthHandler(db, serverAddr, logger)
	adminHandler := httpapi.NewAdminHandler(db, settings, sessionIssuer, logger)

	mux := http.NewServeMux()
	mux.Handle("HEAD /storage/{path...}", storageHandler)
	mux.Handle("GET /storage/{path...}", storageHandler)
	mux.Handle("PUT /storage/{path...}", storageHandler)
	mux.Handle("DELETE /storage/{path...}", storageHandler)
	mux.Handle("OPTIONS /storage/{path...}", storageHandler)
	mux.Handle("GET /.well-known/webfinger", webfingerHandler)
	mux.HandleFunc("GET /oauth/{username}", oauthHandler.ServeGet)
	mux.HandleFunc("POST /oauth", oauthHandler.ServePost)
	adminHandler.Routes(mux)

	handler := middleware.Recovery(logger)(mux)

	addr := fmt.Sprintf(":%d", settings.Port)
	logger.Info("server starting", "addr", addr, "engine", settings.Engine, "domain", settings.Domain)

	server := &http.Server{Addr: addr, Handler: handler}

	if settings.HTTPS != nil {
		httpsAddr := fmt.Sprintf(":%d", settings.HTTPS.Port)
		httpsServer := &http.Server{Addr: httpsAddr, Handler: handler}
		go func() {
			logger.Info("https server starting", "addr", httpsAddr)
			if err := httpsServer.ListenAndServeTLS(settings.HTTPS.CertfilePath, settings.HTTPS.KeyfilePath); err != nil && err != http.ErrServerClosed {
				log.Fatalf("https server: %v", err)
			}
		}()
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}

func engineSettings(settings config.Settings) map[string]any {
	return map[string]any{
		"path":         settings.DataPath,
		"database_url": settings.DatabaseURL,
	}
}

func setupLogger(settings config.Settings) (*slog.Logger, func()) {
	writer := io.Writer(os.Stdout)
	closeFn := func() {}

	if settings.LogfilePath != "" {
		f, err := config.SetupLogFile(settings.LogfilePath, 10)
		if err != nil {
			slog.Default().Warn("failed to open log file, logging to stdout only", "error", err)
		} else {
			writer = io.MultiWriter(os.Stdout, f)
			closeFn = func() { f.Close() }
		}
	}

	return slog.New(slog.NewJSONHandler(writer, nil)), closeFn
}
