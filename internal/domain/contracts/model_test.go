package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	c := Contract{}
	c.normalize(now)
	assert.Equal(t, StatusDraft, c.Status)
	assert.Nil(t, c.SignedAt)

	c.Status = StatusSigned
	c.normalize(now)
	require.NotNil(t, c.SignedAt)
	assert.Equal(t, now, *c.SignedAt)

	// повторное сохранение не сдвигает дату подписи
	c.normalize(now.Add(time.Hour))
	assert.Equal(t, now, *c.SignedAt)

	c.Status = StatusDraft
	c.normalize(now)
	assert.Nil(t, c.SignedAt)
}
