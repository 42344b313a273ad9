package service

import (
	"strings"

	"github.com/patpending/traintimes/pkg/models"
)

//-------------------------------------------------------------------
// Filtering parsed services
//-------------------------------------------------------------------

// FilterByOperatorCode keeps the services run by the operator with the given code, e.g. "GW".
// An empty code keeps everything.
func FilterByOperatorCode(services []models.TrainService, operatorCode string) []models.TrainService {
	operatorCode = strings.TrimSpace(operatorCode)
	if operatorCode == "" {
		return services
	}

	var filtered []models.TrainService
	for _, service := range services {
		if strings.EqualFold(service.OperatorCode, operatorCode) {
			filtered = append(filtered, service)
		}
	}
	return filtered
}

// FilterByDestinations keeps the services that terminate at, or call at, one of the given CRS
// codes. An empty list keeps everything.
func FilterByDestinations(services []models.TrainService, crsCodes []string) []models.TrainService {
	if len(crsCodes) == 0 {
		return services
	}
	wanted := make(map[string]struct{}, len(crsCodes))
	for _, crs := range crsCodes {
		wanted[strings.ToUpper(strings.TrimSpace(crs))] = struct{}{}
	}

	var filtered []models.TrainService
	for _, service := range services {
		if _, ok := wanted[strings.ToUpper(service.DestinationCRS)]; ok {
			filtered = append(filtered, service)
			continue
		}
		for _, cp := range service.CallingPoints {
			if _, ok := wanted[strings.ToUpper(cp.CRS)]; ok {
				filtered = append(filtered, service)
				break
			}
		}
	}
	return filtered
}

// ParseCRSList splits a comma separated list of station codes.
func ParseCRSList(list string) []string {
	var codes []string
	for _, part := range strings.Split(list, ",") {
		if code := strings.ToUpper(strings.TrimSpace(part)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
