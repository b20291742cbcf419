package usecase

import (
	"context"
	"testing"
	"time"

	applogger "SignalDesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertTopicHandler(t *testing.T) {
	f := newIngestFixture(NewMemoryReplayGuard(5*time.Second, 0))
	h := NewAlertTopicHandler("tv.alerts", f.ingestor, applogger.NewNop())
	ctx := context.Background()

	assert.Equal(t, "tv.alerts", h.Topic())

	require.NoError(t, h.Handle(ctx, []byte(nvdaBuy)))
	require.NoError(t, h.Handle(ctx, []byte(nvdaBuy)), "replay is not an error")
	require.NoError(t, h.Handle(ctx, []byte(`{"ticker":""}`)), "invalid payload is skipped")

	assert.Equal(t, 1, f.docs.saveCount())
	assert.Len(t, f.journal.events, 1)
}
