package main

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/fintrack/internal/auth"
	config "github.com/NordCoder/fintrack/internal/config/auth-api"
	"github.com/NordCoder/fintrack/internal/obs/retry"
	"github.com/NordCoder/fintrack/internal/outbox"
	kafkarepo "github.com/NordCoder/fintrack/internal/repository/kafka"
	pg "github.com/NordCoder/fintrack/internal/repository/postgres"
	authsvc "github.com/NordCoder/fintrack/internal/services/auth-api/auth"
	"github.com/NordCoder/fintrack/internal/services/auth-api/session"
	"go.uber.org/zap"
)

type app struct {
	server   *authsvc.Server
	sessions *session.Manager
	runner   *outbox.Runner
	producer *kafkarepo.Producer
}

func buildApp(cfg *config.Config, logger *zap.Logger, db *pg.DB) (*app, error) {
	tokens, err := auth.NewTokenIssuer(cfg.Auth.AsTokenConfig())
	if err != nil {
		return nil, err
	}

	accounts := pg.NewAccountRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)

	deps := authsvc.Deps{
		Accounts: accounts,
		Tx:       pg.NewTransactor(db, logger),
		Hasher:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens:   tokens,
		Logger:   logger,
	}
	a := &app{}
	if cfg.Outbox.Enable {
		deps.Events = outboxRepo
		a.producer = kafkarepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		dispatch := outbox.MakeGlobalOutboxHandler(
			kafkarepo.NewAccountEventsKafka(a.producer),
			retry.DefaultKafkaPolicy(logger),
		)
		a.runner = outbox.NewOutboxRunner(logger, outboxRepo, dispatch, cfg.Outbox.AsRunnerConfig())
	}

	uc := authsvc.NewUsecase(deps, authsvc.Config{
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})

	a.sessions = session.NewManager(pg.NewSessionRepo(db), logger, session.Opts{
		CookieName:   cfg.Session.CookieName,
		CookiePath:   cfg.Session.CookiePath,
		CookieSecure: cfg.Session.CookieSecure,
		MaxAge:       cfg.Session.MaxAge,
	})

	g := cfg.OAuth.Google
	google := authsvc.NewGoogleProvider(authsvc.GoogleConfig{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURL,
		AuthURL:      g.AuthURL,
		TokenURL:     g.TokenURL,
		UserInfoURL:  g.UserInfoURL,
	}, authsvc.NewProviderHTTPClient(cfg.OAuth.ProviderTimeout))

	fed := authsvc.NewFederation(google, a.sessions.Store(), uc, logger, authsvc.FederationConfig{
		StateTTL:        cfg.OAuth.StateTTL,
		ProviderTimeout: cfg.OAuth.ProviderTimeout,
	})

	a.server = authsvc.NewServer(uc, fed, authsvc.Opts{
		Logger:   logger,
		Sessions: a.sessions,
		Health:   db.Ping,
	})
	return a, nil
}

// runBackground starts the session purge loop and, when enabled, the outbox
// runner. The returned channel closes once both have stopped.
func (a *app) runBackground(ctx context.Context, cfg *config.Config, logger *zap.Logger) <-chan struct{} {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sessions.RunPurge(ctx, cfg.Session.PurgeInterval)
	}()

	if a.runner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := kafkarepo.EnsureTopic(ensureCtx, cfg.Kafka.Brokers, kafkarepo.TopicSpec{
				Name:              cfg.Kafka.Topic,
				NumPartitions:     cfg.Kafka.Partitions,
				ReplicationFactor: cfg.Kafka.ReplicationFactor,
				MaxWait:           30 * time.Second,
			}, logger)
			cancel()
			if err != nil {
				logger.Warn("kafka topic not ensured, publishing anyway", zap.Error(err))
			}
			a.runner.Run(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (a *app) close() {
	if a.producer != nil {
		_ = a.producer.Close()
	}
}
