package service

import (
	"testing"

	"github.com/patpending/traintimes/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByOperatorCode(t *testing.T) {
	services := []models.TrainService{
		{ServiceID: "A", OperatorCode: "GW"},
		{ServiceID: "B", OperatorCode: "XR"},
		{ServiceID: "C", OperatorCode: "gw"},
	}

	filtered := FilterByOperatorCode(services, "GW")
	require.Len(t, filtered, 2)
	assert.Equal(t, "A", filtered[0].ServiceID)
	assert.Equal(t, "C", filtered[1].ServiceID)

	assert.Len(t, FilterByOperatorCode(services, " "), 3)
	assert.Empty(t, FilterByOperatorCode(services, "SW"))
}

func TestFilterByDestinations(t *testing.T) {
	services := boardFixture()

	assert.Len(t, FilterByDestinations(services, nil), 3)

	filtered := FilterByDestinations(services, []string{"did"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "B", filtered[0].ServiceID)

	filtered = FilterByDestinations(services, ParseCRSList("RDG, wsm,"))
	require.Len(t, filtered, 2)
	assert.Equal(t, "A", filtered[0].ServiceID)
	assert.Equal(t, "C", filtered[1].ServiceID)

	assert.Empty(t, FilterByDestinations(services, []string{"PNZ"}))
}

func TestParseCRSList(t *testing.T) {
	assert.Equal(t, []string{"PAD", "RDG"}, ParseCRSList(" pad,,RDG "))
	assert.Nil(t, ParseCRSList(""))
}
