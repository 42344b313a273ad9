package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patpending/traintimes/pkg/catalogue"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/patpending/traintimes/service"
)

// liveRows is fetched for stations that are not polled so a destination filter applied here
// still has rows to choose from.
const liveRows = 20

const liveTimeout = 10 * time.Second

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) stations(c *fiber.Ctx) error {
	stations := s.Catalogue.Stations()
	if stations == nil {
		stations = []catalogue.Station{}
	}
	return c.JSON(fiber.Map{"stations": stations})
}

func (s *Server) station(c *fiber.Ctx) string {
	station := strings.ToUpper(strings.TrimSpace(c.Query("station")))
	if station == "" {
		station = s.Default.Station
	}
	return station
}

// departures serves the board for one station. Polled boards are answered from their last
// snapshot; any other station is fetched live. Upstream failures fall back to demo data with
// the error attached.
func (s *Server) departures(c *fiber.Ctx) error {
	station := s.station(c)
	if station == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "station is required"})
	}

	num := c.QueryInt("num", s.Default.NumDepartures)
	if num < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "num must be at least 1"})
	}

	// an explicit empty destination clears the configured filter
	var destinations []string
	filtered := c.Context().QueryArgs().Has("destination")
	if filtered {
		destinations = service.ParseCRSList(c.Query("destination"))
	} else if station == s.Default.Station && s.Default.Destination != "" {
		destinations = []string{s.Default.Destination}
	}

	operator := c.Query("operator")

	unknown := !s.Catalogue.Contains(station)
	if unknown {
		s.logger.Debug().Str("station", station).Msg("station not in catalogue")
	}
	respond := func(resp DeparturesResponse) error {
		resp.UnknownStation = unknown
		return c.JSON(resp)
	}

	if strings.EqualFold(c.Query("demo"), "true") {
		return respond(s.demoResponse(station, num, ""))
	}

	if _, polled := s.board(station); polled && !filtered && s.Store != nil {
		if snapshot, err := s.Store.Load(c.UserContext(), station); err == nil {
			if !snapshot.Available {
				return respond(s.demoResponse(station, num, snapshot.LastError))
			}
			return respond(s.snapshotResponse(snapshot, num, operator))
		}
	}

	if s.Fetcher == nil {
		return respond(s.demoResponse(station, num, "no live data source configured"))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), liveTimeout)
	defer cancel()
	services, err := s.Fetcher.GetDepartureBoard(ctx, service.NewQuery(station, liveRows, ""))
	if err != nil {
		s.logger.Error().Err(err).Str("station", station).Msg("live departures failed, serving demo data")
		return respond(s.demoResponse(station, num, err.Error()))
	}

	services = service.FilterByDestinations(services, destinations)
	services = service.FilterByOperatorCode(services, operator)
	if len(services) > num {
		services = services[:num]
	}
	now := s.now()
	return respond(DeparturesResponse{
		Departures:  NewDepartures(services),
		StationName: s.Catalogue.Name(station),
		StationCRS:  station,
		Time:        now.Format("15:04"),
		LastUpdated: formatTimestamp(now),
		Counts:      models.BoardCounts(services),
	})
}

func (s *Server) snapshotResponse(snapshot *models.Snapshot, num int, operator string) DeparturesResponse {
	services := service.FilterByOperatorCode(snapshot.Services, operator)
	if len(services) > num {
		services = services[:num]
	}
	resp := DeparturesResponse{
		Departures:  NewDepartures(services),
		StationName: snapshot.StationName,
		StationCRS:  snapshot.Station,
		Time:        s.now().Format("15:04"),
		LastUpdated: formatTimestamp(snapshot.LastUpdated),
		Stale:       snapshot.Stale,
		Counts:      models.BoardCounts(services),
	}
	if snapshot.Stale {
		resp.APIError = snapshot.LastError
	}
	return resp
}

func (s *Server) demoResponse(station string, num int, apiError string) DeparturesResponse {
	now := s.now()
	services := DemoServices(now)
	if len(services) > num {
		services = services[:num]
	}
	return DeparturesResponse{
		Departures:  NewDepartures(services),
		StationName: s.Catalogue.Name(station),
		StationCRS:  station,
		Time:        now.Format("15:04"),
		LastUpdated: formatTimestamp(now),
		DemoMode:    true,
		Counts:      models.BoardCounts(services),
		APIError:    apiError,
	}
}

func (s *Server) watched(c *fiber.Ctx) error {
	station := s.station(c)
	if _, ok := s.board(station); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "station " + station + " is not polled"})
	}

	if s.Store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no snapshot store configured"})
	}
	snapshot, err := s.Store.Load(c.UserContext(), station)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no departures fetched yet"})
	}

	resp := WatchedResponse{
		StationCRS:  snapshot.Station,
		StationName: snapshot.StationName,
		Watched:     NewWatchedViews(snapshot.Watched),
		LastUpdated: formatTimestamp(snapshot.LastUpdated),
		Stale:       snapshot.Stale,
	}
	if snapshot.Stale {
		resp.APIError = snapshot.LastError
	}
	return c.JSON(resp)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	station := s.station(c)
	if _, ok := s.board(station); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "station " + station + " is not polled"})
	}

	snapshot, err := s.Poller.Refresh(c.UserContext(), station)
	if err != nil {
		body := fiber.Map{"error": err.Error()}
		if snapshot != nil {
			body["snapshot"] = s.snapshotEvent(snapshot)
		}
		return c.Status(fiber.StatusBadGateway).JSON(body)
	}
	return c.JSON(s.snapshotEvent(snapshot))
}

func (s *Server) board(station string) (service.Board, bool) {
	if s.Poller == nil {
		return service.Board{}, false
	}
	return s.Poller.Board(station)
}
