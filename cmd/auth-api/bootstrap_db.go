package main

import (
	"context"

	config "github.com/NordCoder/fintrack/internal/config/auth-api"
	pg "github.com/NordCoder/fintrack/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
