package service

import (
	"strings"

	"github.com/patpending/traintimes/pkg/models"
)

// ResolveWatched matches each WatchSpec against services and returns a fresh result slice in
// the order of specs. A spec matches the first service with the same scheduled time whose
// destination name contains the filter or whose destination CRS equals it, ignoring case. Only
// the first destination's CRS of a splitting service is compared.
func ResolveWatched(services []models.TrainService, specs []models.WatchSpec) []models.WatchResult {
	results := make([]models.WatchResult, 0, len(specs))
	for _, spec := range specs {
		result := models.WatchResult{Spec: spec}
		for i := range services {
			if matchesWatch(services[i], spec) {
				svc := services[i]
				result.Found = true
				result.Service = &svc
				break
			}
		}
		results = append(results, result)
	}
	return results
}

func matchesWatch(service models.TrainService, spec models.WatchSpec) bool {
	if service.ScheduledTime != spec.ScheduledTime {
		return false
	}
	filter := strings.ToUpper(strings.TrimSpace(spec.Destination))
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToUpper(service.Destination), filter) ||
		strings.ToUpper(service.DestinationCRS) == filter
}
