package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelayMinutes(t *testing.T) {
	tests := []struct {
		name      string
		scheduled string
		expected  string
		want      int
	}{
		{"simple delay", "10:00", "10:15", 15},
		{"midnight rollover", "23:50", "00:05", 15},
		{"on time sentinel", "10:00", "On time", 0},
		{"both empty", "", "", 0},
		{"scheduled empty", "", "10:15", 0},
		{"delayed sentinel", "10:00", "Delayed", UnknownDelay},
		{"cancelled sentinel", "10:00", "Cancelled", UnknownDelay},
		{"early running clamps to zero", "10:00", "09:58", 0},
		{"malformed expected", "10:00", "soon", 0},
		{"malformed scheduled", "1000", "10:15", 0},
		{"same time", "08:30", "08:30", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DelayMinutes(tt.scheduled, tt.expected))
		})
	}
}

func TestTrainServiceStatus(t *testing.T) {
	tests := []struct {
		name    string
		service TrainService
		want    Status
	}{
		{"cancelled flag wins", TrainService{IsCancelled: true, ExpectedTime: ExpectedOnTime, ScheduledTime: "10:00"}, StatusCancelled},
		{"on time", TrainService{ExpectedTime: ExpectedOnTime, ScheduledTime: "10:00"}, StatusOnTime},
		{"delayed sentinel", TrainService{ExpectedTime: ExpectedDelayed, ScheduledTime: "10:00"}, StatusDelayed},
		{"cancelled sentinel without flag", TrainService{ExpectedTime: ExpectedCancelled, ScheduledTime: "10:00"}, StatusCancelled},
		{"clock time differs", TrainService{ExpectedTime: "10:01", ScheduledTime: "10:00"}, StatusDelayed},
		{"clock time equal", TrainService{ExpectedTime: "10:00", ScheduledTime: "10:00"}, StatusOnTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.service.Status())
		})
	}
}

func TestCallingPointStatus(t *testing.T) {
	assert.Equal(t, StatusCancelled, CallingPoint{IsCancelled: true, ExpectedTime: ExpectedOnTime}.Status())
	assert.Equal(t, StatusOnTime, CallingPoint{ExpectedTime: ExpectedOnTime}.Status())
	assert.Equal(t, StatusDelayed, CallingPoint{ExpectedTime: ExpectedDelayed}.Status())
	// clock estimates are not compared for calling points
	assert.Equal(t, StatusOnTime, CallingPoint{ScheduledTime: "10:00", ExpectedTime: "10:20"}.Status())
}

func TestSummary(t *testing.T) {
	base := TrainService{ScheduledTime: "10:00", Destination: "Reading"}

	onTime := base
	onTime.ExpectedTime = ExpectedOnTime
	assert.Equal(t, "10:00 to Reading - On time", onTime.Summary())

	late := base
	late.ExpectedTime = "10:15"
	assert.Equal(t, "10:00 to Reading - Exp 10:15 (15 min late)", late.Summary())
	assert.True(t, late.IsDelayed())

	unknown := base
	unknown.ExpectedTime = ExpectedDelayed
	assert.Equal(t, "10:00 to Reading - Exp Delayed", unknown.Summary())
	assert.True(t, unknown.IsDelayed())

	cancelled := base
	cancelled.ExpectedTime = ExpectedCancelled
	cancelled.IsCancelled = true
	assert.Equal(t, "10:00 to Reading - CANCELLED", cancelled.Summary())
	assert.False(t, cancelled.IsDelayed())
}

func TestBoardCounts(t *testing.T) {
	services := []TrainService{
		{ScheduledTime: "10:00", ExpectedTime: ExpectedOnTime},
		{ScheduledTime: "10:10", ExpectedTime: "10:14"},
		{ScheduledTime: "10:20", ExpectedTime: ExpectedCancelled, IsCancelled: true},
		{ScheduledTime: "10:30", ExpectedTime: ExpectedDelayed},
	}
	assert.Equal(t, Counts{Total: 4, Delayed: 2, Cancelled: 1}, BoardCounts(services))
}

func TestWatchResultStatus(t *testing.T) {
	assert.Equal(t, StatusNoReport, WatchResult{}.Status())

	svc := &TrainService{ScheduledTime: "09:15", ExpectedTime: ExpectedCancelled, IsCancelled: true}
	wr := WatchResult{Found: true, Service: svc}
	assert.Equal(t, StatusCancelled, wr.Status())
	assert.True(t, wr.IsCancelled())
	assert.False(t, wr.IsDelayed())
}

func TestPlatformOrDefault(t *testing.T) {
	p := "4"
	assert.Equal(t, "4", TrainService{Platform: &p}.PlatformOrDefault("-"))
	assert.Equal(t, "-", TrainService{}.PlatformOrDefault("-"))
}
