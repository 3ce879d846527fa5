package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"storyverse/internal/config"
	"storyverse/internal/payment"
	"storyverse/internal/repository"
	"storyverse/internal/repository/postgres"
	"storyverse/internal/repository/sqlite"
	"storyverse/internal/storage"
)

// repos is the driver independent view of the persistence layer.
type repos struct {
	db       *sql.DB
	users    repository.UserRepository
	books    repository.BookRepository
	orders   repository.OrderRepository
	progress repository.ProgressRepository
	messages repository.MessageRepository
}

func (r *repos) Close() error {
	return r.db.Close()
}

func openRepos(ctx context.Context, cfg config.Config) (*repos, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		s, err := postgres.NewStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return &repos{db: db, users: s.Users, books: s.Books, orders: s.Orders, progress: s.Progress, messages: s.Messages}, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s, err := sqlite.NewStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return &repos{db: db, users: s.Users, books: s.Books, orders: s.Orders, progress: s.Progress, messages: s.Messages}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildAuthority(cfg config.Config, logger logrus.FieldLogger) payment.Authority {
	if cfg.Payment.Provider == "sandbox" {
		logger.Warn("using sandbox payment authority, no real payments are taken")
		return payment.NewSandbox(cfg.Payment.KeySecret, cfg.Payment.Currency)
	}
	return payment.NewRazorpay(payment.RazorpayConfig{
		BaseURL:   cfg.Payment.BaseURL,
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
		Currency:  cfg.Payment.Currency,
		Timeout:   cfg.PaymentTimeout(),
	})
}

// buildStorage returns nil when no bucket is configured.
func buildStorage(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*storage.S3Store, error) {
	if cfg.Storage.Bucket == "" {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.ClientConfig{
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
		Profile:  cfg.AWS.Profile,
	})
	if err != nil {
		return nil, err
	}
	store, err := storage.NewS3Store(client, storage.S3Options{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		URLTTL:    cfg.URLTTL(),
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return store, nil
}
