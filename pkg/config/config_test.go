package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, c.Server.Port)
	assert.Equal(t, 5*time.Second, c.Webhook.DedupeWindow)
	assert.Equal(t, 500, c.Alerts.MaxRows)
	assert.Equal(t, 5*time.Second, c.Alerts.StoreTimeout)
	assert.Equal(t, "Local", c.Alerts.Timezone)
	assert.False(t, c.Alerts.AcceptUnknownTimeframes)
	assert.Equal(t, 256, c.Kafka.Producer.BroadcastBuffer)
	assert.Equal(t, []string{"AI_5m", "AI_15m", "AI_1h"}, c.Alerts.Timeframes)
	assert.Equal(t, "AI_5m", c.Alerts.PrimaryTimeframe)
	assert.Equal(t, 60*time.Second, c.Pivot.Interval)
	assert.True(t, c.Pivot.Enabled)
	assert.False(t, c.Pivot.MA20Enabled)
	assert.Equal(t, "yahoo", c.MarketData.Provider)
	assert.Empty(t, c.Webhook.Secret)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 8088
alerts:
  data_dir: /var/lib/signaldesk
  max_rows: 100
pivot:
  interval: 30s
  tickers: [nvda, aapl]
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 8088, c.Server.Port)
	assert.Equal(t, "/var/lib/signaldesk", c.Alerts.DataDir)
	assert.Equal(t, 100, c.Alerts.MaxRows)
	assert.Equal(t, 30*time.Second, c.Pivot.Interval)
	assert.Equal(t, []string{"nvda", "aapl"}, c.Pivot.Tickers)
	// untouched sections keep defaults
	assert.Equal(t, "AI_5m", c.Alerts.PrimaryTimeframe)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "pivot:\n  interval: 30s\n")
	t.Setenv("TV_WEBHOOK_SECRET", "s3cret")
	t.Setenv("DATA_DIR", "/tmp/alerts")
	t.Setenv("PIVOT_INTERVAL_MS", "15000")
	t.Setenv("PIVOT_TICKERS", "MSFT,TSLA")
	t.Setenv("PIVOT_TICKERS_FILE", "/etc/tickers.txt")
	t.Setenv("PORT", "9999")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", c.Webhook.Secret)
	assert.Equal(t, "/tmp/alerts", c.Alerts.DataDir)
	assert.Equal(t, 15*time.Second, c.Pivot.Interval)
	assert.Equal(t, []string{"MSFT", "TSLA"}, c.Pivot.Tickers)
	assert.Equal(t, "/etc/tickers.txt", c.Pivot.TickersFile)
	assert.Equal(t, 9999, c.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "defaults are valid", yaml: "", wantErr: false},
		{name: "unknown log level", yaml: "log:\n  level: loud\n", wantErr: true},
		{name: "primary timeframe not listed", yaml: "alerts:\n  primary_timeframe: AI_4h\n", wantErr: true},
		{name: "redis replay without addr", yaml: "webhook:\n  replay: redis\n", wantErr: true},
		{name: "redis replay with addr", yaml: "webhook:\n  replay: redis\nredis:\n  addr: localhost:6379\n", wantErr: false},
		{name: "finnhub without key", yaml: "market_data:\n  provider: finnhub\n", wantErr: true},
		{name: "interval below one second", yaml: "pivot:\n  interval: 500ms\n", wantErr: true},
		{name: "alerts topic without brokers", yaml: "kafka:\n  alerts_topic: tv-alerts\n", wantErr: true},
		{name: "bad timezone", yaml: "alerts:\n  timezone: Mars/Olympus\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
