package service

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	Soapenv = "http://schemas.xmlsoap.org/soap/envelope/"
	Soaptyp = "http://thalesgroup.com/RTTI/2013-11-28/Token/types"
	Soapldb = "http://thalesgroup.com/RTTI/2021-11-01/ldb/"

	// SOAPAction identifies the GetDepBoardWithDetails operation.
	SOAPAction = "http://thalesgroup.com/RTTI/2015-05-14/ldb/GetDepBoardWithDetails"

	DefaultTimeWindow = 120
	FilterTypeTo      = "to"
)

// Envelope represents the SOAP envelope
type Envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	Xmlns   string   `xml:"xmlns:soap,attr"`
	Typ     string   `xml:"xmlns:typ,attr"`
	Ldb     string   `xml:"xmlns:ldb,attr"`
	Header  Header   `xml:"soap:Header"`
	Body    Body     `xml:"soap:Body"`
}

type Header struct {
	AccessToken AccessToken `xml:"typ:AccessToken"`
}

type AccessToken struct {
	TokenValue string `xml:"typ:TokenValue"`
}

type Body struct {
	Content interface{} `xml:",any"`
}

// GetDepBoardWithDetailsRequest is the body of a departure board query. The filter pair is
// omitted together when no destination is set.
type GetDepBoardWithDetailsRequest struct {
	XMLName    xml.Name `xml:"ldb:GetDepBoardWithDetailsRequest"`
	NumRows    int      `xml:"ldb:numRows"`
	Crs        string   `xml:"ldb:crs"`
	FilterCrs  string   `xml:"ldb:filterCrs,omitempty"`
	FilterType string   `xml:"ldb:filterType,omitempty"`
	TimeOffset int      `xml:"ldb:timeOffset"`
	TimeWindow int      `xml:"ldb:timeWindow"`
}

// Query holds the caller supplied parameters of a departure board request.
type Query struct {
	Station     string
	NumRows     int
	Destination string
	TimeOffset  int
	TimeWindow  int
}

func NewQuery(station string, numRows int, destination string) Query {
	return Query{
		Station:     station,
		NumRows:     numRows,
		Destination: destination,
		TimeOffset:  0,
		TimeWindow:  DefaultTimeWindow,
	}
}

//----------------------------------------------
// Functions to construct envelope and payloads
//----------------------------------------------

// NewRequest builds the request body for q. Range checks on NumRows are left to the caller.
func NewRequest(q Query) (*GetDepBoardWithDetailsRequest, error) {
	request := &GetDepBoardWithDetailsRequest{
		NumRows:    q.NumRows,
		TimeOffset: q.TimeOffset,
		TimeWindow: q.TimeWindow,
	}
	if err := request.SetCRS(q.Station); err != nil {
		return nil, err
	}
	if dest := strings.TrimSpace(q.Destination); dest != "" {
		request.FilterCrs = strings.ToUpper(dest)
		request.FilterType = FilterTypeTo
	}
	return request, nil
}

// NewEnvelope creates a new Envelope with the provided token and request
func NewEnvelope(token string, request interface{}) (*Envelope, error) {
	if len(token) == 0 {
		return nil, fmt.Errorf("token is empty")
	}
	if request == nil {
		return nil, fmt.Errorf("request is nil")
	}

	return &Envelope{
		Xmlns: Soapenv,
		Typ:   Soaptyp,
		Ldb:   Soapldb,
		Header: Header{
			AccessToken: AccessToken{
				TokenValue: token,
			},
		},
		Body: Body{
			Content: request,
		},
	}, nil
}

// SetCRS sets the upper-cased station code on the request
func (body *GetDepBoardWithDetailsRequest) SetCRS(crs string) error {
	crs = strings.TrimSpace(crs)
	if len(crs) == 0 {
		return fmt.Errorf("crs is empty")
	}
	body.Crs = strings.ToUpper(crs)
	return nil
}

// ToPayload marshals the envelope with the XML declaration.
func (req *Envelope) ToPayload() ([]byte, error) {
	payload, err := xml.MarshalIndent(req, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), payload...), nil
}

// BuildRequest returns the SOAP document for a departure board query.
func BuildRequest(token string, q Query) ([]byte, error) {
	request, err := NewRequest(q)
	if err != nil {
		return nil, err
	}
	envelope, err := NewEnvelope(token, request)
	if err != nil {
		return nil, err
	}
	return envelope.ToPayload()
}
