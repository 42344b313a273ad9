package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patpending/traintimes/cache"
	"github.com/patpending/traintimes/config"
	"github.com/patpending/traintimes/pkg/catalogue"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/patpending/traintimes/service"
	"github.com/rs/zerolog"
)

// Poller is the part of service.Poller the dashboard drives.
type Poller interface {
	Board(station string) (service.Board, bool)
	Refresh(ctx context.Context, station string) (*models.Snapshot, error)
}

type Options struct {
	Config config.ServerConfig
	// Default answers requests that name no station.
	Default   service.Board
	Poller    Poller
	Store     cache.Store
	Fetcher   service.Fetcher // nil serves demo data for stations that are not polled
	Catalogue *catalogue.Catalogue
	Events    *EventServer
}

type Server struct {
	App       *fiber.App
	Events    *EventServer
	Config    config.ServerConfig
	Default   service.Board
	Poller    Poller
	Store     cache.Store
	Fetcher   service.Fetcher
	Catalogue *catalogue.Catalogue

	now    func() time.Time
	logger zerolog.Logger
}

func NewServer(logger zerolog.Logger, opts Options) *Server {
	if opts.Catalogue == nil {
		opts.Catalogue = catalogue.Default()
	}
	if opts.Default.NumDepartures == 0 {
		opts.Default.NumDepartures = config.DefaultNumDepartures
	}

	s := &Server{
		App: fiber.New(fiber.Config{
			AppName:               "traintimes",
			DisableStartupMessage: true,
		}),
		Events:    opts.Events,
		Config:    opts.Config,
		Default:   opts.Default,
		Poller:    opts.Poller,
		Store:     opts.Store,
		Fetcher:   opts.Fetcher,
		Catalogue: opts.Catalogue,
		now:       time.Now,
		logger:    logger.With().Str("component", "dashboard").Logger(),
	}
	addRoutes(s.App, s)
	return s
}

func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.Config.Addr).Msg("dashboard listening")
	return s.App.Listen(s.Config.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}

// OnSnapshot pushes a finished poll to every SSE client.
func (s *Server) OnSnapshot(snapshot *models.Snapshot) {
	if s.Events == nil {
		return
	}
	data, err := json.Marshal(s.snapshotEvent(snapshot))
	if err != nil {
		s.logger.Error().Err(err).Str("station", snapshot.Station).Msg("failed to marshal snapshot event")
		return
	}
	s.Events.Broadcast(Message{Event: "snapshot", Data: data})
}

func (s *Server) snapshotEvent(snapshot *models.Snapshot) SnapshotEvent {
	return SnapshotEvent{
		StationCRS:  snapshot.Station,
		StationName: snapshot.StationName,
		Available:   snapshot.Available,
		Stale:       snapshot.Stale,
		LastUpdated: formatTimestamp(snapshot.LastUpdated),
		LastError:   snapshot.LastError,
		Departures:  NewDepartures(snapshot.Services),
		Watched:     NewWatchedViews(snapshot.Watched),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
