package triage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponseFullObject(t *testing.T) {
	res, err := ParseResponse(`{"priority_score":0.75,"entities":[{"name":"John Doe","type":"person"}],"relationships":[],"anomalies":[]}`)
	require.NoError(t, err)
	require.True(t, res.Scored)
	require.Equal(t, 0.75, res.PriorityScore)
	require.Len(t, res.Entities, 1)
	require.Equal(t, "John Doe", res.Entities[0].Name)
	require.Equal(t, "person", res.Entities[0].Type)
	require.Empty(t, res.Relationships)
	require.Empty(t, res.Anomalies)
}

func TestParseResponseToleratesCommentary(t *testing.T) {
	response := "Here is my analysis:\n```json\n{\"priority_score\": 0.2, \"entities\": []}\n```\nLet me know if you need more."
	res, err := ParseResponse(response)
	require.NoError(t, err)
	require.Equal(t, 0.2, res.PriorityScore)
}

func TestParseResponseNoJSON(t *testing.T) {
	_, err := ParseResponse("I could not analyze this chunk, sorry.")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseResponse("")
	require.ErrorIs(t, err, ErrNoJSON)
}

func TestParseResponseMalformedJSON(t *testing.T) {
	_, err := ParseResponse(`{"priority_score": 0.5, "entities": [`)
	require.Error(t, err)
}

func TestParseResponseDefaults(t *testing.T) {
	res, err := ParseResponse(`{}`)
	require.NoError(t, err)
	require.True(t, res.Scored)
	require.Zero(t, res.PriorityScore)
	require.Empty(t, res.Entities)
}

func TestParseResponseRelationshipConfidence(t *testing.T) {
	res, err := ParseResponse(`{"relationships":[
		{"source":"A","target":"B","type":"knows"},
		{"source":"A","target":"C","type":"owns","confidence":"0.9"},
		{"source":"B","target":"C","type":"funds","confidence":"not a number"},
		{"source":"C","target":"D","type":"exceeds","confidence":7.5}
	]}`)
	require.NoError(t, err)
	require.Len(t, res.Relationships, 4)
	require.Equal(t, DefaultConfidence, res.Relationships[0].Confidence)
	require.Equal(t, 0.9, res.Relationships[1].Confidence)
	require.Equal(t, DefaultConfidence, res.Relationships[2].Confidence)
	require.Equal(t, 1.0, res.Relationships[3].Confidence)
}

func TestParseResponseRelationshipTypeDefault(t *testing.T) {
	res, err := ParseResponse(`{"relationships":[{"source":"A","target":"B"}]}`)
	require.NoError(t, err)
	require.Equal(t, "associated", res.Relationships[0].Type)
}

func TestParseResponseSkipsUnnamedEntities(t *testing.T) {
	res, err := ParseResponse(`{"entities":[{"name":"  "},{"name":"Acme Corp"}]}`)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	require.Equal(t, "unknown", res.Entities[0].Type)
}

func TestParseResponseAnomalyDefaults(t *testing.T) {
	res, err := ParseResponse(`{"anomalies":[{"description":"dates disagree"}]}`)
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	require.Equal(t, "unknown", res.Anomalies[0].Type)
	require.Equal(t, "low", res.Anomalies[0].Severity)
	require.Equal(t, DefaultConfidence, res.Anomalies[0].Confidence)
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "John Doe", NormalizeName("john doe"))
	require.Equal(t, "John Doe", NormalizeName("  John Doe  "))
	require.Equal(t, "John Doe", NormalizeName("JOHN DOE"))
	require.Equal(t, NormalizeName("john doe"), NormalizeName("John Doe"))
	require.Equal(t, "Acme-Global Holdings", NormalizeName("ACME-GLOBAL holdings"))
}
