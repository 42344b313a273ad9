package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/patpending/traintimes/cache"
	"github.com/patpending/traintimes/pkg/catalogue"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// ErrPollLimit is returned when the request budget for the current window is spent.
var ErrPollLimit = errors.New("poll limit reached for current window")

// watchedRows is how many rows are fetched when watched trains need resolving or an operator
// filter thins the board, so trains further down than the displayed departures still count.
const watchedRows = 20

// Board is one station departure board the poller keeps fresh.
type Board struct {
	Station       string
	NumDepartures int
	Destination   string
	// OperatorCode restricts the board to one train operator when set.
	OperatorCode string
	Watched      []models.WatchSpec
}

func (b Board) query() Query {
	rows := b.NumDepartures
	if (len(b.Watched) > 0 || b.OperatorCode != "") && rows < watchedRows {
		rows = watchedRows
	}
	return NewQuery(b.Station, rows, b.Destination)
}

type PollSetup struct {
	Boards []Board
}

// PollMonitor enforces the request budget Darwin allows per window.
type PollMonitor struct {
	RequestLimitWindow time.Duration
	PollLimit          int
	TickerInterval     time.Duration
	RequestCount       int
	WindowStart        time.Time
	mu                 sync.Mutex
}

func NewPollMonitor(limit int, limitWindow time.Duration, tickerInterval time.Duration) *PollMonitor {
	return &PollMonitor{
		RequestLimitWindow: limitWindow,
		PollLimit:          limit,
		TickerInterval:     tickerInterval,
	}
}

// Allow records one request if the budget for the current window permits it.
func (pm *PollMonitor) Allow(now time.Time) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Reset window if time since window start exceeds window duration
	if pm.WindowStart.IsZero() || now.Sub(pm.WindowStart) > pm.RequestLimitWindow {
		pm.RequestCount = 0
		pm.WindowStart = now
	}
	if pm.PollLimit > 0 && pm.RequestCount >= pm.PollLimit {
		return false
	}
	pm.RequestCount++
	return true
}

// Fetcher is the part of Client the poller needs.
type Fetcher interface {
	GetDepartureBoard(ctx context.Context, q Query) ([]models.TrainService, error)
}

// Poller refreshes each configured board on a ticker. Polls of one board never overlap and
// every poll replaces the stored snapshot wholesale.
type Poller struct {
	*PollSetup
	*PollMonitor
	Fetcher    Fetcher
	Store      cache.Store
	Publisher  cache.Publisher
	Catalogue  *catalogue.Catalogue
	MaxRetries int
	RetryDelay time.Duration

	listeners []func(*models.Snapshot)
	inFlight  map[string]*sync.Mutex
	now       func() time.Time
	logger    zerolog.Logger
}

func NewPoller(logger zerolog.Logger, setup *PollSetup, monitor *PollMonitor, fetcher Fetcher, store cache.Store, publisher cache.Publisher, stations *catalogue.Catalogue) *Poller {
	inFlight := make(map[string]*sync.Mutex, len(setup.Boards))
	for i := range setup.Boards {
		setup.Boards[i].Station = strings.ToUpper(setup.Boards[i].Station)
		inFlight[setup.Boards[i].Station] = &sync.Mutex{}
	}
	if publisher == nil {
		publisher = cache.NopPublisher{}
	}
	return &Poller{
		PollSetup:   setup,
		PollMonitor: monitor,
		Fetcher:     fetcher,
		Store:       store,
		Publisher:   publisher,
		Catalogue:   stations,
		MaxRetries:  2,
		RetryDelay:  time.Second,
		inFlight:    inFlight,
		now:         time.Now,
		logger:      logger.With().Str("component", "poller").Logger(),
	}
}

// OnSnapshot registers fn to be called with every new snapshot, stale ones included. Not safe
// to call once Run has started.
func (p *Poller) OnSnapshot(fn func(*models.Snapshot)) {
	p.listeners = append(p.listeners, fn)
}

func (p *Poller) Board(station string) (Board, bool) {
	station = strings.ToUpper(station)
	for _, b := range p.Boards {
		if b.Station == station {
			return b, true
		}
	}
	return Board{}, false
}

// Run polls every board immediately and then on each tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.TickerInterval)
	defer ticker.Stop()
	p.logger.Info().Dur("interval", p.TickerInterval).Int("boards", len(p.Boards)).Msg("poller started")

	p.PollAll(ctx)
	for {
		select {
		case <-ticker.C:
			p.PollAll(ctx)
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopped")
			return
		}
	}
}

// PollAll refreshes every board concurrently. A board whose previous poll is still running is
// skipped for this round.
func (p *Poller) PollAll(ctx context.Context) {
	start := p.now()
	wp := pool.New().WithMaxGoroutines(4)
	for _, board := range p.Boards {
		wp.Go(func() {
			lock := p.inFlight[board.Station]
			if !lock.TryLock() {
				p.logger.Debug().Str("station", board.Station).Msg("poll still in flight, skipping")
				return
			}
			defer lock.Unlock()
			// errors are recorded on the snapshot and logged by poll
			_, _ = p.poll(ctx, board)
		})
	}
	wp.Wait()
	p.logger.Info().Str("duration", p.now().Sub(start).String()).Msg("Polling completed")
}

// Refresh polls one configured board now, waiting for any poll already in flight.
func (p *Poller) Refresh(ctx context.Context, station string) (*models.Snapshot, error) {
	board, ok := p.Board(station)
	if !ok {
		return nil, fmt.Errorf("station %s is not a configured board", strings.ToUpper(station))
	}
	lock := p.inFlight[board.Station]
	lock.Lock()
	defer lock.Unlock()
	return p.poll(ctx, board)
}

func (p *Poller) poll(ctx context.Context, board Board) (*models.Snapshot, error) {
	previous, err := p.Store.Load(ctx, board.Station)
	if err != nil {
		previous = nil
	}

	services, err := p.fetch(ctx, board)
	if err != nil {
		p.logger.Error().Err(err).Str("station", board.Station).Msg("error in polling data")
		stale := p.staleSnapshot(board, previous, err)
		if saveErr := p.Store.Save(ctx, stale); saveErr != nil {
			p.logger.Error().Err(saveErr).Str("station", board.Station).Msg("failed to store stale snapshot")
		}
		p.notify(stale)
		return stale, err
	}
	services = FilterByOperatorCode(services, board.OperatorCode)

	snapshot := &models.Snapshot{
		Station:     board.Station,
		StationName: p.Catalogue.Name(board.Station),
		Services:    trim(services, board.NumDepartures),
		Watched:     ResolveWatched(services, board.Watched),
		LastUpdated: p.now(),
		Available:   true,
	}

	var before []models.TrainService
	if previous != nil {
		before = previous.Services
	}
	if events := cache.Diff(board.Station, before, snapshot.Services); len(events) > 0 {
		if err := p.Publisher.Publish(ctx, events); err != nil {
			p.logger.Error().Err(err).Str("station", board.Station).Msg("failed to publish changes")
		}
	}

	if err := p.Store.Save(ctx, snapshot); err != nil {
		p.logger.Error().Err(err).Str("station", board.Station).Msg("failed to store snapshot")
	}
	p.notify(snapshot)
	return snapshot, nil
}

func (p *Poller) notify(snapshot *models.Snapshot) {
	for _, fn := range p.listeners {
		fn(snapshot)
	}
}

func (p *Poller) fetch(ctx context.Context, board Board) ([]models.TrainService, error) {
	q := board.query()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.RetryDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(0, p.MaxRetries))), ctx)

	return backoff.RetryWithData(func() ([]models.TrainService, error) {
		if !p.Allow(p.now()) {
			return nil, backoff.Permanent(ErrPollLimit)
		}
		services, err := p.Fetcher.GetDepartureBoard(ctx, q)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return services, err
	}, retry)
}

// staleSnapshot keeps the last known good services after a failed poll. The board is only
// unavailable when nothing has ever been fetched.
func (p *Poller) staleSnapshot(board Board, previous *models.Snapshot, err error) *models.Snapshot {
	stale := &models.Snapshot{
		Station:     board.Station,
		StationName: p.Catalogue.Name(board.Station),
		LastError:   err.Error(),
		Stale:       true,
	}
	if previous != nil && !previous.LastUpdated.IsZero() {
		stale.Services = previous.Services
		stale.Watched = previous.Watched
		stale.LastUpdated = previous.LastUpdated
		stale.Available = true
	}
	return stale
}

func trim(services []models.TrainService, n int) []models.TrainService {
	if n <= 0 || len(services) <= n {
		return services
	}
	return services[:n]
}
