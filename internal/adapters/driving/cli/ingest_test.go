package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
)

func TestIngestCmd_SingleBasho(t *testing.T) {
	m := &mocks{}
	out, err := run(t, m, "ingest", "--basho", "202401")
	require.NoError(t, err)
	assert.Equal(t, []string{"202401"}, m.ingested)
	v := decode(t, out)
	assert.Equal(t, "202401", v["bashoId"])
	assert.EqualValues(t, 8, v["snapshotCount"])
}

func TestIngestCmd_SingleBashoFailure(t *testing.T) {
	m := &mocks{ingestErr: &domain.IngestError{
		Code: domain.CodeSumoDBIDMapMiss, Msg: "unmapped", BashoID: "202401", Details: []string{"makuuchi:day1:bout1:east:sumodbId=1"},
	}}
	out, err := run(t, m, "ingest", "--basho", "202401")
	require.Error(t, err)
	v := decode(t, out)
	assert.Equal(t, "SUMODB_ID_MAP_MISS", v["code"])
	assert.Equal(t, []any{"makuuchi:day1:bout1:east:sumodbId=1"}, v["details"])
}

func TestIngestCmd_Range(t *testing.T) {
	m := &mocks{}
	out, err := run(t, m, "ingest", "--from", "202301", "--to", "202311", "--force")
	require.NoError(t, err)
	assert.Equal(t, []any{"202301", "202311", true}, m.rangeArgs)
	assert.Equal(t, "202301", decode(t, out)["from"])
}

func TestIngestCmd_RangeWithFailuresExitsNonZero(t *testing.T) {
	m := &mocks{rangeRes: &domain.RangeResult{
		From: "202401", To: "202403", Total: 2, Complete: 1, Failed: 1,
		Results: []domain.IngestOutcome{
			{BashoID: "202401", Status: domain.IngestionComplete},
			{BashoID: "202403", Status: domain.IngestionFailed, Error: "code=FETCH_FAILED"},
		},
	}}
	out, err := run(t, m, "ingest", "--from", "202401", "--to", "202403")
	require.Error(t, err)
	v := decode(t, out)
	assert.EqualValues(t, 1, v["failed"], "only the range summary is printed")
	assert.NotContains(t, v, "error")
}

func TestIngestCmd_FlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"nothing", []string{"ingest"}},
		{"from without to", []string{"ingest", "--from", "202401"}},
		{"basho and range", []string{"ingest", "--basho", "202401", "--from", "202401", "--to", "202403"}},
		{"bad mode", []string{"ingest", "--basho", "202401", "--mode", "carrier-pigeon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mocks{}
			_, err := run(t, m, tt.args...)
			assert.Error(t, err)
			assert.Empty(t, m.ingested)
		})
	}
}

func TestIngestCmd_ModeOverride(t *testing.T) {
	m := &mocks{}
	_, err := run(t, m, "ingest", "--basho", "202401", "--mode", "LIVE")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestLive, m.opts.IngestMode)

	m = &mocks{}
	_, err = run(t, m, "ingest", "--basho", "202401")
	require.NoError(t, err)
	assert.Empty(t, m.opts.IngestMode, "the configured mode is kept")
}

func TestParseIngestMode(t *testing.T) {
	mode, err := parseIngestMode(" Offline ")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestOffline, mode)

	_, err = parseIngestMode("replay")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
