package service

import (
	"context"
	"errors"

	"github.com/patpending/traintimes/pkg/models"
	"github.com/rs/zerolog"
)

// Client queries the Darwin LDBWS departure board. It holds no per-request state and can be
// shared between goroutines as long as the Requester can.
type Client struct {
	Token     string
	URL       string
	Requester Requester
	logger    zerolog.Logger
}

func NewClient(token, url string, requester Requester, logger zerolog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("darwin API token is empty")
	}
	if url == "" {
		url = DarwinEndpoint
	}
	return &Client{
		Token:     token,
		URL:       url,
		Requester: requester,
		logger:    logger.With().Str("component", "darwin").Logger(),
	}, nil
}

// GetBoard fetches and parses one departure board.
func (c *Client) GetBoard(ctx context.Context, q Query) (*models.DepartureBoard, error) {
	payload, err := BuildRequest(c.Token, q)
	if err != nil {
		return nil, err
	}

	data, err := c.Requester.Post(ctx, c.URL, payload)
	if err != nil {
		return nil, err
	}

	board, err := ParseBoard(data, c.logger)
	if err != nil {
		c.logger.Error().Err(err).Str("station", q.Station).Msg("Failed to read departure board")
		return nil, err
	}

	c.logger.Debug().
		Str("station", q.Station).
		Int("services", len(board.Services)).
		Msg("Fetched departures")
	return board, nil
}

func (c *Client) GetDepartureBoard(ctx context.Context, q Query) ([]models.TrainService, error) {
	board, err := c.GetBoard(ctx, q)
	if err != nil {
		return nil, err
	}
	return board.Services, nil
}

// ValidateCredentials performs a single row fetch for station. The error is returned unchanged
// so callers can tell an AuthenticationError apart from connectivity problems.
func (c *Client) ValidateCredentials(ctx context.Context, station string) error {
	_, err := c.GetBoard(ctx, NewQuery(station, 1, ""))
	return err
}
