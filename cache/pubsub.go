package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/patpending/traintimes/pkg/models"
)

//------------------------------------------------------------
// Change events published after each poll
//------------------------------------------------------------

type EventTag string

const (
	TagNew     EventTag = "new"
	TagChanged EventTag = "changed"
	TagRemoved EventTag = "removed"
)

type ServiceEvent struct {
	Tag       EventTag             `json:"tag"`
	Station   string               `json:"station_crs"`
	ServiceID string               `json:"service_id"`
	Service   *models.TrainService `json:"service,omitempty"`
}

// Diff compares two polls of the same board keyed by service ID. A service is changed when its
// expected time, platform, cancellation or derived status differ.
func Diff(station string, previous, next []models.TrainService) []ServiceEvent {
	before := make(map[string]models.TrainService, len(previous))
	for _, s := range previous {
		before[s.ServiceID] = s
	}

	var events []ServiceEvent
	seen := make(map[string]struct{}, len(next))
	for i := range next {
		s := next[i]
		seen[s.ServiceID] = struct{}{}
		old, ok := before[s.ServiceID]
		switch {
		case !ok:
			events = append(events, ServiceEvent{Tag: TagNew, Station: station, ServiceID: s.ServiceID, Service: &s})
		case serviceChanged(old, s):
			events = append(events, ServiceEvent{Tag: TagChanged, Station: station, ServiceID: s.ServiceID, Service: &s})
		}
	}
	for _, s := range previous {
		if _, ok := seen[s.ServiceID]; !ok {
			events = append(events, ServiceEvent{Tag: TagRemoved, Station: station, ServiceID: s.ServiceID})
		}
	}
	return events
}

func serviceChanged(a, b models.TrainService) bool {
	return a.ExpectedTime != b.ExpectedTime ||
		a.PlatformOrDefault("") != b.PlatformOrDefault("") ||
		a.IsCancelled != b.IsCancelled ||
		a.Status() != b.Status()
}

//--------------------------------------------------------------
// Publishing data to Redis PubSub
//--------------------------------------------------------------

type Publisher interface {
	Publish(ctx context.Context, events []ServiceEvent) error
}

func Channel(station string) string {
	return fmt.Sprintf("departures:%s", strings.ToUpper(station))
}

func (rc *RedisClient) Publish(ctx context.Context, events []ServiceEvent) error {
	for _, event := range events {
		jsonValue, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal value to JSON: %w", err)
		}
		if err := rc.Client.Publish(ctx, Channel(event.Station), jsonValue).Err(); err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}
	return nil
}

// NopPublisher drops events when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, []ServiceEvent) error {
	return nil
}
