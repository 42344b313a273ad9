package dashboard

import (
	"github.com/patpending/traintimes/pkg/models"
)

const noPlatform = "-"

type CallingPointView struct {
	Station   string `json:"station"`
	CRS       string `json:"crs"`
	Scheduled string `json:"scheduled"`
	Expected  string `json:"expected"`
}

// Departure is the flattened row the board page renders.
type Departure struct {
	ServiceID      string             `json:"service_id"`
	Destination    string             `json:"destination"`
	DestinationCRS string             `json:"destination_crs"`
	ScheduledTime  string             `json:"scheduled_time"`
	ExpectedTime   string             `json:"expected_time"`
	Platform       string             `json:"platform"`
	Operator       string             `json:"operator"`
	Status         models.Status      `json:"status"`
	IsCancelled    bool               `json:"is_cancelled"`
	CancelReason   *string            `json:"cancel_reason"`
	DelayReason    *string            `json:"delay_reason"`
	DelayMinutes   int                `json:"delay_minutes"`
	Summary        string             `json:"summary"`
	CallingPoints  []CallingPointView `json:"calling_points"`
}

func NewDeparture(s models.TrainService) Departure {
	points := make([]CallingPointView, 0, len(s.CallingPoints))
	for _, cp := range s.CallingPoints {
		points = append(points, CallingPointView{
			Station:   cp.StationName,
			CRS:       cp.CRS,
			Scheduled: cp.ScheduledTime,
			Expected:  cp.ExpectedTime,
		})
	}
	return Departure{
		ServiceID:      s.ServiceID,
		Destination:    s.Destination,
		DestinationCRS: s.DestinationCRS,
		ScheduledTime:  s.ScheduledTime,
		ExpectedTime:   s.ExpectedTime,
		Platform:       s.PlatformOrDefault(noPlatform),
		Operator:       s.Operator,
		Status:         s.Status(),
		IsCancelled:    s.IsCancelled,
		CancelReason:   s.CancelReason,
		DelayReason:    s.DelayReason,
		DelayMinutes:   s.DelayMinutes(),
		Summary:        s.Summary(),
		CallingPoints:  points,
	}
}

func NewDepartures(services []models.TrainService) []Departure {
	departures := make([]Departure, 0, len(services))
	for _, s := range services {
		departures = append(departures, NewDeparture(s))
	}
	return departures
}

type DeparturesResponse struct {
	Departures  []Departure   `json:"departures"`
	StationName string        `json:"station_name"`
	StationCRS  string        `json:"station_crs"`
	Time        string        `json:"time"`
	LastUpdated string        `json:"last_updated"`
	DemoMode    bool          `json:"demo_mode"`
	Stale       bool          `json:"stale"`
	Counts      models.Counts `json:"counts"`
	APIError    string        `json:"api_error,omitempty"`
	// UnknownStation is set when the code is not in the station catalogue.
	UnknownStation bool `json:"unknown_station,omitempty"`
}

type WatchedView struct {
	ScheduledTime string        `json:"time"`
	Destination   string        `json:"destination"`
	Found         bool          `json:"found"`
	Status        models.Status `json:"status"`
	IsDelayed     bool          `json:"is_delayed"`
	IsCancelled   bool          `json:"is_cancelled"`
	Departure     *Departure    `json:"departure,omitempty"`
}

func NewWatchedViews(results []models.WatchResult) []WatchedView {
	views := make([]WatchedView, 0, len(results))
	for _, r := range results {
		view := WatchedView{
			ScheduledTime: r.Spec.ScheduledTime,
			Destination:   r.Spec.Destination,
			Found:         r.Found,
			Status:        r.Status(),
			IsDelayed:     r.IsDelayed(),
			IsCancelled:   r.IsCancelled(),
		}
		if r.Found && r.Service != nil {
			d := NewDeparture(*r.Service)
			view.Departure = &d
		}
		views = append(views, view)
	}
	return views
}

type WatchedResponse struct {
	StationCRS  string        `json:"station_crs"`
	StationName string        `json:"station_name"`
	Watched     []WatchedView `json:"watched"`
	LastUpdated string        `json:"last_updated"`
	Stale       bool          `json:"stale"`
	APIError    string        `json:"api_error,omitempty"`
}

// SnapshotEvent is the payload pushed to SSE clients after every poll.
type SnapshotEvent struct {
	StationCRS  string        `json:"station_crs"`
	StationName string        `json:"station_name"`
	Available   bool          `json:"available"`
	Stale       bool          `json:"stale"`
	LastUpdated string        `json:"last_updated"`
	LastError   string        `json:"last_error,omitempty"`
	Departures  []Departure   `json:"departures"`
	Watched     []WatchedView `json:"watched"`
}
