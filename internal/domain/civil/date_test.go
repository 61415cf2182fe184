package civil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsISOTimestamp(t *testing.T) {
	d, err := Parse("2024-03-10T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", d.String())

	_, err = Parse("10/03/2024")
	assert.Error(t, err)
}

func TestTodayUsesLocation(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	// 01:00 UTC ещё предыдущий день в Сан-Паулу
	now := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-09", Today(now, sp).String())
}

func TestJSON(t *testing.T) {
	var v struct {
		End *Date `json:"endDate"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"endDate":"2024-12-31"}`), &v))
	require.NotNil(t, v.End)
	assert.True(t, New(2024, 12, 30).Before(*v.End))
	assert.Equal(t, New(2025, 1, 1), v.End.AddDays(1))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"endDate":"2024-12-31"}`, string(out))
}
