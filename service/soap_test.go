package service

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name       string
		query      Query
		wantCRS    string
		wantFilter string
	}{
		{name: "no destination", query: NewQuery("PAD", 3, ""), wantCRS: "PAD"},
		{name: "destination filter", query: NewQuery("pad", 5, "rdg"), wantCRS: "PAD", wantFilter: "RDG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := BuildRequest("secret-token", tt.query)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(payload), `<?xml version="1.0" encoding="UTF-8"?>`))

			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromBytes(payload))
			root := doc.Root()
			assert.Equal(t, "Envelope", root.Tag)
			assert.Equal(t, Soapenv, root.NamespaceURI())

			token := root.FindElement("//TokenValue")
			require.NotNil(t, token)
			assert.Equal(t, Soaptyp, token.NamespaceURI())
			assert.Equal(t, "secret-token", token.Text())

			request := root.FindElement("//GetDepBoardWithDetailsRequest")
			require.NotNil(t, request)
			assert.Equal(t, Soapldb, request.NamespaceURI())
			assert.Equal(t, tt.wantCRS, request.FindElement("crs").Text())
			assert.Equal(t, "0", request.FindElement("timeOffset").Text())
			assert.Equal(t, "120", request.FindElement("timeWindow").Text())

			if tt.wantFilter == "" {
				assert.Nil(t, request.FindElement("filterCrs"))
				assert.Nil(t, request.FindElement("filterType"))
				return
			}
			assert.Equal(t, tt.wantFilter, request.FindElement("filterCrs").Text())
			assert.Equal(t, "to", request.FindElement("filterType").Text())
		})
	}
}

func TestBuildRequestErrors(t *testing.T) {
	_, err := BuildRequest("", NewQuery("PAD", 3, ""))
	assert.EqualError(t, err, "token is empty")

	_, err = BuildRequest("token", NewQuery("  ", 3, ""))
	assert.EqualError(t, err, "crs is empty")
}

func TestNewEnvelopeErrors(t *testing.T) {
	request, err := NewRequest(NewQuery("PAD", 3, ""))
	require.NoError(t, err)

	_, err = NewEnvelope("", request)
	assert.EqualError(t, err, "token is empty")

	_, err = NewEnvelope("token", nil)
	assert.EqualError(t, err, "request is nil")
}
