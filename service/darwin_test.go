package service

import (
	"context"
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRequester struct {
	response []byte
	err      error
	url      string
	payload  []byte
	calls    int
}

func (m *mockRequester) Post(_ context.Context, url string, payload []byte) ([]byte, error) {
	m.calls++
	m.url = url
	m.payload = payload
	return m.response, m.err
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "", &mockRequester{}, zerolog.Nop())
	assert.Error(t, err)

	client, err := NewClient("token", "", &mockRequester{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DarwinEndpoint, client.URL)
}

func TestClientGetDepartureBoard(t *testing.T) {
	requester := &mockRequester{response: loadSample(t)}
	client, err := NewClient("token", "http://darwin.test/ldb12.asmx", requester, zerolog.Nop())
	require.NoError(t, err)

	services, err := client.GetDepartureBoard(context.Background(), NewQuery("pad", 10, "oxf"))
	require.NoError(t, err)
	assert.Len(t, services, 3)
	assert.Equal(t, "http://darwin.test/ldb12.asmx", requester.url)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(requester.payload))
	assert.Equal(t, "PAD", doc.FindElement("//crs").Text())
	assert.Equal(t, "OXF", doc.FindElement("//filterCrs").Text())
	assert.Equal(t, "10", doc.FindElement("//numRows").Text())
}

func TestClientErrorsPassThrough(t *testing.T) {
	authErr := &AuthenticationError{StatusCode: 401}
	client, err := NewClient("token", "", &mockRequester{err: authErr}, zerolog.Nop())
	require.NoError(t, err)

	err = client.ValidateCredentials(context.Background(), "PAD")
	assert.True(t, IsAuthentication(err))

	client.Requester = &mockRequester{err: &TransportError{Cause: errors.New("dial tcp: refused")}}
	err = client.ValidateCredentials(context.Background(), "PAD")
	assert.False(t, IsAuthentication(err))
	assert.True(t, IsRetryable(err))

	client.Requester = &mockRequester{response: []byte("garbage")}
	_, err = client.GetBoard(context.Background(), NewQuery("PAD", 1, ""))
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestValidateCredentialsRequestsOneRow(t *testing.T) {
	requester := &mockRequester{response: loadSample(t)}
	client, err := NewClient("token", "", requester, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, client.ValidateCredentials(context.Background(), "PAD"))
	assert.Equal(t, 1, requester.calls)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(requester.payload))
	assert.Equal(t, "1", doc.FindElement("//numRows").Text())
}
