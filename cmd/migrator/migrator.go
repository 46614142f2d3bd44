package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/NordCoder/fintrack/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply fintrack database migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("DB_DSN")
			}
			if dsn == "" {
				return fmt.Errorf("database dsn is empty: pass --dsn or set DB_DSN")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres connection string (default $DB_DSN)")

	open := func() (*sql.DB, error) { return openDB(dsn) }
	cmd.AddCommand(newUpCommand(open), newDownCommand(open), newStatusCommand(open))
	return cmd
}

func openDB(dsn string) (*sql.DB, error) {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func newUpCommand(open func() (*sql.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := goose.UpContext(cmd.Context(), db, "."); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			cmd.Println("migrations: up OK")
			return nil
		},
	}
}

func newDownCommand(open func() (*sql.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := goose.DownContext(cmd.Context(), db, "."); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			cmd.Println("migrations: down OK")
			return nil
		},
	}
}

func newStatusCommand(open func() (*sql.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			return goose.StatusContext(cmd.Context(), db, ".")
		},
	}
}
