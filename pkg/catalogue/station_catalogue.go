package catalogue

import (
	"sort"
	"strings"
)

// StationCatalog holds the default CRS code to station name table
var StationCatalog = map[string]string{
	"PAD": "London Paddington",
	"EUS": "London Euston",
	"KGX": "London King's Cross",
	"STP": "London St Pancras International",
	"VIC": "London Victoria",
	"WAT": "London Waterloo",
	"CHX": "London Charing Cross",
	"LST": "London Liverpool Street",
	"BHM": "Birmingham New Street",
	"MAN": "Manchester Piccadilly",
	"LDS": "Leeds",
	"EDB": "Edinburgh Waverley",
	"GLC": "Glasgow Central",
	"BRI": "Bristol Temple Meads",
	"RDG": "Reading",
	"OXF": "Oxford",
	"CBG": "Cambridge",
	"NCL": "Newcastle",
	"LIV": "Liverpool Lime Street",
	"SHF": "Sheffield",
	"SVG": "Stevenage",
	"HIT": "Hitchin",
	"LET": "Letchworth Garden City",
	"BDK": "Baldock",
	"RYS": "Royston",
}

type Station struct {
	CRS  string `json:"crs"`
	Name string `json:"name"`
}

// Catalogue is a read-only lookup of station names. It is built once and handed to the
// components that need it.
type Catalogue struct {
	names map[string]string
}

// New copies names so later changes to the map do not leak into the catalogue.
func New(names map[string]string) *Catalogue {
	c := &Catalogue{names: make(map[string]string, len(names))}
	for crs, name := range names {
		c.names[strings.ToUpper(crs)] = name
	}
	return c
}

func Default() *Catalogue {
	return New(StationCatalog)
}

// Name of the station, or the upper-cased code when it is not in the catalogue.
func (c *Catalogue) Name(crs string) string {
	crs = strings.ToUpper(strings.TrimSpace(crs))
	if name, ok := c.names[crs]; ok {
		return name
	}
	return crs
}

func (c *Catalogue) Contains(crs string) bool {
	_, ok := c.names[strings.ToUpper(crs)]
	return ok
}

// Stations sorted by name.
func (c *Catalogue) Stations() []Station {
	stations := make([]Station, 0, len(c.names))
	for crs, name := range c.names {
		stations = append(stations, Station{CRS: crs, Name: name})
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].Name < stations[j].Name
	})
	return stations
}
