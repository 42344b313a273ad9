package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

// Darwin type namespaces, newest first. The service mixes revisions inside one document, so
// every field lookup walks this list.
const (
	NamespaceLT8 = "http://thalesgroup.com/RTTI/2021-11-01/ldb/types"
	NamespaceLT7 = "http://thalesgroup.com/RTTI/2017-10-01/ldb/types"
	NamespaceLT6 = "http://thalesgroup.com/RTTI/2017-02-02/ldb/types"
	NamespaceLT5 = "http://thalesgroup.com/RTTI/2016-02-16/ldb/types"
	NamespaceLT4 = "http://thalesgroup.com/RTTI/2015-11-27/ldb/types"
	NamespaceLT3 = "http://thalesgroup.com/RTTI/2015-05-14/ldb/types"
	NamespaceLT2 = "http://thalesgroup.com/RTTI/2014-02-20/ldb/types"
	NamespaceLT  = "http://thalesgroup.com/RTTI/2012-01-13/ldb/types"
)

var namespacePriority = [...]string{
	NamespaceLT8, NamespaceLT7, NamespaceLT6, NamespaceLT5,
	NamespaceLT4, NamespaceLT3, NamespaceLT2, NamespaceLT,
}

const unknownFault = "Unknown SOAP fault"

//-------------------------------------------------------------------
// Element lookups
//-------------------------------------------------------------------

// FindFirst returns the trimmed text of the first direct child of elem named local, trying
// each namespace in order and then the unqualified name. Children with blank text are ignored.
func FindFirst(elem *etree.Element, local string, namespaces []string) (string, bool) {
	if elem == nil {
		return "", false
	}
	children := elem.ChildElements()
	for _, ns := range namespaces {
		for _, child := range children {
			if child.Tag != local || child.NamespaceURI() != ns {
				continue
			}
			if text := strings.TrimSpace(child.Text()); text != "" {
				return text, true
			}
		}
	}
	for _, child := range children {
		if child.Tag != local || child.Space != "" {
			continue
		}
		if text := strings.TrimSpace(child.Text()); text != "" {
			return text, true
		}
	}
	return "", false
}

func text(elem *etree.Element, local string) string {
	value, _ := FindFirst(elem, local, namespacePriority[:])
	return value
}

func textOr(elem *etree.Element, local, def string) string {
	if value, ok := FindFirst(elem, local, namespacePriority[:]); ok {
		return value
	}
	return def
}

func optionalText(elem *etree.Element, local string) *string {
	if value, ok := FindFirst(elem, local, namespacePriority[:]); ok {
		return &value
	}
	return nil
}

// children returns the direct children named local under any known namespace or unqualified.
func children(elem *etree.Element, local string) []*etree.Element {
	var found []*etree.Element
	for _, child := range elem.ChildElements() {
		if child.Tag != local {
			continue
		}
		if child.Space == "" || isDarwinNamespace(child.NamespaceURI()) {
			found = append(found, child)
		}
	}
	return found
}

// descendants returns every element below elem named local in namespace ns, in document order.
func descendants(elem *etree.Element, local, ns string) []*etree.Element {
	var found []*etree.Element
	for _, child := range elem.ChildElements() {
		if child.Tag == local && child.NamespaceURI() == ns {
			found = append(found, child)
		}
		found = append(found, descendants(child, local, ns)...)
	}
	return found
}

func firstDescendant(elem *etree.Element, local string) *etree.Element {
	for _, child := range elem.ChildElements() {
		if child.Tag == local {
			return child
		}
		if found := firstDescendant(child, local); found != nil {
			return found
		}
	}
	return nil
}

func isDarwinNamespace(uri string) bool {
	for _, ns := range namespacePriority {
		if ns == uri {
			return true
		}
	}
	return false
}

//-------------------------------------------------------------------
// Parsing
//-------------------------------------------------------------------

func readDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Cause: err}
	}
	if doc.Root() == nil {
		return nil, &ParseError{Cause: fmt.Errorf("document has no root element")}
	}
	return doc, nil
}

func checkFault(root *etree.Element) error {
	var fault *etree.Element
	if root.Tag == "Fault" && root.NamespaceURI() == Soapenv {
		fault = root
	} else if found := descendants(root, "Fault", Soapenv); len(found) > 0 {
		fault = found[0]
	}
	if fault == nil {
		return nil
	}

	for _, child := range fault.ChildElements() {
		if child.Tag == "faultstring" {
			if msg := strings.TrimSpace(child.Text()); msg != "" {
				return &FaultError{Message: msg}
			}
		}
	}
	return &FaultError{Message: unknownFault}
}

// ParseBoard parses a GetDepBoardWithDetails response. Faults and malformed documents are
// returned as errors; an individual service that cannot be read is logged and dropped.
func ParseBoard(data []byte, logger zerolog.Logger) (*models.DepartureBoard, error) {
	doc, err := readDocument(data)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if err := checkFault(root); err != nil {
		return nil, err
	}

	board := &models.DepartureBoard{}
	if result := firstDescendant(root, "GetStationBoardResult"); result != nil {
		board.LocationName = text(result, "locationName")
		board.CRS = text(result, "crs")
		if generated := text(result, "generatedAt"); generated != "" {
			if ts, err := time.Parse(time.RFC3339Nano, generated); err == nil {
				board.GeneratedAt = ts
			}
		}
	}

	elements := descendants(root, "service", NamespaceLT8)
	board.Services = make([]models.TrainService, 0, len(elements))
	for i, elem := range elements {
		service, err := parseService(elem)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("Failed to parse service")
			continue
		}
		board.Services = append(board.Services, *service)
	}

	return board, nil
}

// ParseDepartures returns only the services of the board, in document order.
func ParseDepartures(data []byte, logger zerolog.Logger) ([]models.TrainService, error) {
	board, err := ParseBoard(data, logger)
	if err != nil {
		return nil, err
	}
	return board.Services, nil
}

func parseService(elem *etree.Element) (service *models.TrainService, err error) {
	defer func() {
		if r := recover(); r != nil {
			service = nil
			err = fmt.Errorf("malformed service element: %v", r)
		}
	}()

	serviceID := text(elem, "serviceID")
	if serviceID == "" {
		return nil, fmt.Errorf("service has no serviceID")
	}

	destination, destinationCRS := parseDestination(elem)
	expected := textOr(elem, "etd", models.ExpectedOnTime)

	return &models.TrainService{
		ServiceID:      serviceID,
		Destination:    destination,
		DestinationCRS: destinationCRS,
		ScheduledTime:  text(elem, "std"),
		ExpectedTime:   expected,
		Platform:       optionalText(elem, "platform"),
		Operator:       text(elem, "operator"),
		OperatorCode:   text(elem, "operatorCode"),
		IsCancelled:    expected == models.ExpectedCancelled,
		CancelReason:   optionalText(elem, "cancelReason"),
		DelayReason:    optionalText(elem, "delayReason"),
		CallingPoints:  parseCallingPoints(elem),
	}, nil
}

// parseDestination joins the names of every terminating location so splitting services read
// "A & B". The CRS code comes from the first location only.
func parseDestination(elem *etree.Element) (string, string) {
	var locations []*etree.Element
	for _, dest := range children(elem, "destination") {
		locations = append(locations, children(dest, "location")...)
	}
	if len(locations) == 0 {
		return "Unknown", ""
	}

	names := make([]string, 0, len(locations))
	for _, loc := range locations {
		if name := text(loc, "locationName"); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " & "), text(locations[0], "crs")
}

func parseCallingPoints(elem *etree.Element) []models.CallingPoint {
	elements := descendants(elem, "callingPoint", NamespaceLT8)
	points := make([]models.CallingPoint, 0, len(elements))
	for _, cp := range elements {
		name := text(cp, "locationName")
		if name == "" {
			continue
		}
		expected := textOr(cp, "et", models.ExpectedOnTime)
		points = append(points, models.CallingPoint{
			StationName:   name,
			CRS:           text(cp, "crs"),
			ScheduledTime: text(cp, "st"),
			ExpectedTime:  expected,
			IsCancelled:   expected == models.ExpectedCancelled,
		})
	}
	return points
}
