package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tesebook/internal/util"
	"tesebook/pkg/storage"
	"tesebook/services/api/internal/app"
	"tesebook/services/api/internal/config"
	"tesebook/services/api/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("TESEBOOK_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel)

	documents, images, filesDir, err := buildObjectStores(cfg)
	if err != nil {
		slog.Error("object storage init failed", "error", err)
		os.Exit(1)
	}

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		slog.Error("invalid session ttl", "error", err)
		os.Exit(1)
	}

	application, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		SessionBackend: cfg.SessionBackend,
		SessionTTL:     sessionTTL,
		JWTSecret:      cfg.JWTSecret,
		Documents:      documents,
		Images:         images,
	})
	if err != nil {
		slog.Error("app init failed", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		App:                      application,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		MaxUploadBytes:           cfg.MaxUploadBytes,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
		FilesDir:                 filesDir,
	})
	if err != nil {
		slog.Error("server init failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	slog.Info("api service listening", "port", cfg.Port, "storage", cfg.StorageBackend, "sessions", cfg.SessionBackend)
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// buildObjectStores returns the PDF and image backends plus, for the fs
// backend, the local directory to serve under /files/.
func buildObjectStores(cfg config.FileConfig) (storage.ObjectStore, storage.ObjectStore, string, error) {
	switch cfg.StorageBackend {
	case "minio":
		documents, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.PDFBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, nil, "", fmt.Errorf("init %s bucket: %w", cfg.PDFBucket, err)
		}
		images, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.ImageBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, nil, "", fmt.Errorf("init %s bucket: %w", cfg.ImageBucket, err)
		}
		return documents, images, "", nil
	case "fs":
		documents, err := storage.NewFileStore(
			filepath.Join(cfg.FileStoragePath, cfg.PDFBucket),
			cfg.PublicBaseURL+"/files/"+cfg.PDFBucket,
		)
		if err != nil {
			return nil, nil, "", fmt.Errorf("init %s dir: %w", cfg.PDFBucket, err)
		}
		images, err := storage.NewFileStore(
			filepath.Join(cfg.FileStoragePath, cfg.ImageBucket),
			cfg.PublicBaseURL+"/files/"+cfg.ImageBucket,
		)
		if err != nil {
			return nil, nil, "", fmt.Errorf("init %s dir: %w", cfg.ImageBucket, err)
		}
		return documents, images, cfg.FileStoragePath, nil
	default:
		return nil, nil, "", fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
