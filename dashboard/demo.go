package dashboard

import (
	"fmt"
	"time"

	"github.com/patpending/traintimes/pkg/models"
)

const demoOperator = "Great Western Railway"

type demoStop struct {
	name   string
	crs    string
	offset int
}

type demoTrain struct {
	destination string
	crs         string
	offset      int
	delay       int
	platform    string
	cancelled   string
	delayReason string
	stops       []demoStop
}

var demoTrains = []demoTrain{
	{
		destination: "Bristol Temple Meads", crs: "BRI", offset: 5, platform: "1",
		stops: []demoStop{
			{"Reading", "RDG", 25}, {"Didcot Parkway", "DID", 40}, {"Swindon", "SWI", 55},
			{"Bath Spa", "BTH", 80}, {"Bristol Temple Meads", "BRI", 95},
		},
	},
	{
		destination: "Oxford", crs: "OXF", offset: 12, delay: 5, platform: "4",
		delayReason: "Awaiting train crew",
		stops: []demoStop{
			{"Slough", "SLO", 25}, {"Reading", "RDG", 40}, {"Didcot Parkway", "DID", 55}, {"Oxford", "OXF", 70},
		},
	},
	{
		destination: "Penzance", crs: "PNZ", offset: 20, platform: "3",
		stops: []demoStop{
			{"Reading", "RDG", 35}, {"Taunton", "TAU", 90}, {"Exeter St Davids", "EXD", 140},
			{"Plymouth", "PLY", 200}, {"Penzance", "PNZ", 320},
		},
	},
	{
		destination: "Cardiff Central", crs: "CDF", offset: 28,
		cancelled: "A points failure",
	},
	{
		destination: "Swansea", crs: "SWA", offset: 35, platform: "6",
		stops: []demoStop{
			{"Reading", "RDG", 50}, {"Swindon", "SWI", 70}, {"Bristol Parkway", "BPW", 95},
			{"Newport", "NWP", 120}, {"Cardiff Central", "CDF", 135}, {"Swansea", "SWA", 180},
		},
	},
	{
		destination: "Cheltenham Spa", crs: "CNM", offset: 42, platform: "2",
		stops: []demoStop{
			{"Reading", "RDG", 55}, {"Swindon", "SWI", 80}, {"Gloucester", "GCR", 110}, {"Cheltenham Spa", "CNM", 125},
		},
	},
}

// DemoServices returns a fixed board relative to now, used when the live feed is unavailable
// or demo mode is requested.
func DemoServices(now time.Time) []models.TrainService {
	clock := func(minutes int) string {
		return now.Add(time.Duration(minutes) * time.Minute).Format("15:04")
	}

	services := make([]models.TrainService, 0, len(demoTrains))
	for i, train := range demoTrains {
		s := models.TrainService{
			ServiceID:      fmt.Sprintf("DEMO%d", i+1),
			Destination:    train.destination,
			DestinationCRS: train.crs,
			ScheduledTime:  clock(train.offset),
			ExpectedTime:   models.ExpectedOnTime,
			Operator:       demoOperator,
			OperatorCode:   "GW",
			CallingPoints:  make([]models.CallingPoint, 0, len(train.stops)),
		}
		if train.platform != "" {
			platform := train.platform
			s.Platform = &platform
		}
		if train.delay > 0 {
			s.ExpectedTime = clock(train.offset + train.delay)
		}
		if train.delayReason != "" {
			reason := train.delayReason
			s.DelayReason = &reason
		}
		if train.cancelled != "" {
			reason := train.cancelled
			s.ExpectedTime = models.ExpectedCancelled
			s.IsCancelled = true
			s.CancelReason = &reason
		}
		for _, stop := range train.stops {
			s.CallingPoints = append(s.CallingPoints, models.CallingPoint{
				StationName:   stop.name,
				CRS:           stop.crs,
				ScheduledTime: clock(stop.offset),
				ExpectedTime:  models.ExpectedOnTime,
			})
		}
		services = append(services, s)
	}
	return services
}
