package models

import "time"

// Sentinel values Darwin places in the expected-time fields instead of a clock time.
const (
	ExpectedOnTime    = "On time"
	ExpectedDelayed   = "Delayed"
	ExpectedCancelled = "Cancelled"
)

// Status is the derived running state of a service or calling point.
type Status string

const (
	StatusOnTime    Status = "on_time"
	StatusDelayed   Status = "delayed"
	StatusCancelled Status = "cancelled"
	StatusNoReport  Status = "no_report"
)

// CallingPoint holds the data for each stop along the line.
type CallingPoint struct {
	StationName   string `json:"station"`
	CRS           string `json:"crs"`
	ScheduledTime string `json:"scheduled"`
	ExpectedTime  string `json:"expected"`
	IsCancelled   bool   `json:"is_cancelled"`
}

// Status of a calling point. Clock times in ExpectedTime are not compared against the
// scheduled time, only the sentinels are honoured.
func (cp CallingPoint) Status() Status {
	switch {
	case cp.IsCancelled:
		return StatusCancelled
	case cp.ExpectedTime == ExpectedOnTime:
		return StatusOnTime
	case cp.ExpectedTime == ExpectedDelayed:
		return StatusDelayed
	}
	return StatusOnTime
}

// TrainService is one scheduled departure from the board station. Records are produced fresh
// on every poll and are never mutated after parsing.
type TrainService struct {
	ServiceID      string         `json:"service_id"`
	Destination    string         `json:"destination"`
	DestinationCRS string         `json:"destination_crs"`
	ScheduledTime  string         `json:"scheduled_time"`
	ExpectedTime   string         `json:"expected_time"`
	Platform       *string        `json:"platform"`
	Operator       string         `json:"operator"`
	OperatorCode   string         `json:"operator_code"`
	IsCancelled    bool           `json:"is_cancelled"`
	CancelReason   *string        `json:"cancel_reason"`
	DelayReason    *string        `json:"delay_reason"`
	CallingPoints  []CallingPoint `json:"calling_points"`
}

func (ts TrainService) Status() Status {
	switch {
	case ts.IsCancelled:
		return StatusCancelled
	case ts.ExpectedTime == ExpectedOnTime:
		return StatusOnTime
	case ts.ExpectedTime == ExpectedDelayed:
		return StatusDelayed
	case ts.ExpectedTime == ExpectedCancelled:
		return StatusCancelled
	case ts.ExpectedTime != ts.ScheduledTime:
		return StatusDelayed
	}
	return StatusOnTime
}

// DelayMinutes of the service, see DelayMinutes.
func (ts TrainService) DelayMinutes() int {
	return DelayMinutes(ts.ScheduledTime, ts.ExpectedTime)
}

// IsDelayed reports a delayed status or a positive clock delay.
func (ts TrainService) IsDelayed() bool {
	return ts.Status() == StatusDelayed || ts.DelayMinutes() > 0
}

// PlatformOrDefault returns the platform or def when none has been allocated yet.
func (ts TrainService) PlatformOrDefault(def string) string {
	if ts.Platform == nil {
		return def
	}
	return *ts.Platform
}

// DepartureBoard is the parsed GetStationBoardResult.
type DepartureBoard struct {
	LocationName string         `json:"location_name"`
	CRS          string         `json:"crs"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Services     []TrainService `json:"services"`
}

// WatchSpec is a user configured train to track individually across polls. Destination is
// optional and is matched as a name substring or a CRS code.
type WatchSpec struct {
	ScheduledTime string `yaml:"time" json:"scheduled_time" validate:"required"`
	Destination   string `yaml:"destination" json:"destination"`
}

// WatchResult is the resolution of one WatchSpec against a fresh poll.
type WatchResult struct {
	Spec    WatchSpec     `json:"spec"`
	Found   bool          `json:"found"`
	Service *TrainService `json:"service,omitempty"`
}

// Status of the watched train, StatusNoReport when it is not on the board.
func (wr WatchResult) Status() Status {
	if !wr.Found || wr.Service == nil {
		return StatusNoReport
	}
	return wr.Service.Status()
}

func (wr WatchResult) IsDelayed() bool {
	return wr.Found && wr.Service != nil && wr.Service.IsDelayed()
}

func (wr WatchResult) IsCancelled() bool {
	return wr.Found && wr.Service != nil && wr.Service.IsCancelled
}

// Snapshot is the last result of polling one board. A failed poll keeps the previous services
// and records the error.
type Snapshot struct {
	Station     string         `json:"station_crs"`
	StationName string         `json:"station_name"`
	Services    []TrainService `json:"services"`
	Watched     []WatchResult  `json:"watched"`
	LastUpdated time.Time      `json:"last_updated"`
	LastError   string         `json:"last_error,omitempty"`
	Stale       bool           `json:"stale"`
	Available   bool           `json:"available"`
}
