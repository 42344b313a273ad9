package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patpending/traintimes/cache"
	"github.com/patpending/traintimes/config"
	"github.com/patpending/traintimes/dashboard"
	"github.com/patpending/traintimes/pkg/catalogue"
	"github.com/patpending/traintimes/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "poll the configured boards and run the dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen target for the dashboard, overrides the config",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if listen := c.String("listen"); listen != "" {
				cfg.Server.Addr = listen
			}
			return serve(c.Context, cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.Logger

	var store cache.Store = cache.NewMemoryStore()
	var publisher cache.Publisher = cache.NopPublisher{}
	var rc *cache.RedisClient
	if cfg.Redis.Enabled {
		var err error
		rc, err = cache.NewRedisClient(logger, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rc.Close()
		store, publisher = rc, rc
	}

	events := dashboard.NewSSEServer(ctx, logger)
	go events.Run()

	server, poller, err := newDashboard(cfg, store, publisher, events)
	if err != nil {
		events.Stop()
		return err
	}

	if rc != nil {
		subscriber := dashboard.NewRedisSubscriber(logger, rc.Client)
		if err := subscriber.Relay(ctx, dashboard.ChangeEventsPattern, events); err != nil {
			logger.Error().Err(err).Msg("failed to subscribe to change events")
		}
	}

	if poller != nil {
		go poller.Run(ctx)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Listen()
	}()

	select {
	case err := <-errs:
		events.Stop()
		return fmt.Errorf("dashboard stopped: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal, initiating shutdown...")
	}

	// streams only end once the hub stops
	events.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down dashboard: %w", err)
	}
	logger.Info().Msg("server shutdown complete")
	return nil
}

// newDashboard wires the poller into the dashboard. Without a Darwin token there is no poller
// and no fetcher, and every request is answered with demo data.
func newDashboard(cfg *config.Config, store cache.Store, publisher cache.Publisher, events *dashboard.EventServer) (*dashboard.Server, *service.Poller, error) {
	logger := log.Logger
	stations := catalogue.Default()
	setup := cfg.PollSetup()

	opts := dashboard.Options{
		Config:    cfg.Server,
		Default:   setup.Boards[0],
		Store:     store,
		Catalogue: stations,
		Events:    events,
	}

	if !cfg.HasToken() {
		logger.Warn().Msg("no Darwin API token configured, serving demo data")
		return dashboard.NewServer(logger, opts), nil, nil
	}

	client, err := newDarwinClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	poller := service.NewPoller(logger, setup, cfg.PollMonitor(), client, store, publisher, stations)
	poller.MaxRetries = cfg.Poll.MaxRetries

	opts.Poller = poller
	opts.Fetcher = client
	server := dashboard.NewServer(logger, opts)
	poller.OnSnapshot(server.OnSnapshot)
	return server, poller, nil
}

func boardCommand() *cli.Command {
	return &cli.Command{
		Name:  "board",
		Usage: "fetch one departure board and print it as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "station",
				Aliases:  []string{"s"},
				Usage:    "CRS code of the station",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "num",
				Aliases: []string{"n"},
				Value:   config.DefaultNumDepartures,
				Usage:   "number of departures (1-10)",
			},
			&cli.StringFlag{
				Name:    "destination",
				Aliases: []string{"d"},
				Usage:   "only services calling at this CRS code",
			},
		},
		Action: func(c *cli.Context) error {
			num := c.Int("num")
			if num < 1 || num > 10 {
				return cli.Exit("num must be between 1 and 10", 1)
			}

			client, err := darwinClientFromFlags(c)
			if err != nil {
				return err
			}

			board, err := client.GetBoard(c.Context, service.NewQuery(c.String("station"), num, c.String("destination")))
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(c.App.Writer)
			encoder.SetIndent("", "  ")
			return encoder.Encode(board)
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check the Darwin token against a station",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "station",
				Aliases: []string{"s"},
				Value:   "PAD",
				Usage:   "CRS code used for the test request",
			},
		},
		Action: func(c *cli.Context) error {
			client, err := darwinClientFromFlags(c)
			if err != nil {
				return err
			}

			err = client.ValidateCredentials(c.Context, c.String("station"))
			var authErr *service.AuthenticationError
			switch {
			case errors.As(err, &authErr):
				return cli.Exit("Invalid API token - authentication failed", 2)
			case err != nil:
				return cli.Exit(fmt.Sprintf("Cannot connect to Darwin: %v", err), 3)
			}

			fmt.Fprintf(c.App.Writer, "Darwin credentials are valid (%s)\n", c.String("station"))
			return nil
		},
	}
}

func darwinClientFromFlags(c *cli.Context) (*service.Client, error) {
	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDarwin(); err != nil {
		return nil, err
	}
	return newDarwinClient(cfg)
}

func newDarwinClient(cfg *config.Config) (*service.Client, error) {
	requester := service.NewClientRequester(service.NewSharedHTTPClient(), log.Logger)
	if cfg.Darwin.Timeout > 0 {
		requester.Timeout = cfg.Darwin.Timeout
	}
	return service.NewClient(cfg.Darwin.Token, cfg.Darwin.Endpoint, requester, log.Logger)
}
