package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// Direction is the side of a signal.
type Direction string

const (
	DirectionBuy  Direction = "Buy"
	DirectionSell Direction = "Sell"
)

// Zone is the display colour of a ticker row.
type Zone string

const (
	ZoneGreen Zone = "green"
	ZoneRed   Zone = "red"
)

// Zone maps Buy to green and Sell to red.
func (d Direction) Zone() Zone {
	if d == DirectionSell {
		return ZoneRed
	}
	return ZoneGreen
}

// AlertEvent is one normalized webhook call.
type AlertEvent struct {
	Ticker    string    `json:"ticker" validate:"required"`
	Timeframe string    `json:"timeframe" validate:"required"`
	Direction Direction `json:"direction" validate:"required"`
	Time      string    `json:"time" validate:"required"`
	Zone      Zone      `json:"zone"`
}

// ReplayKey identifies an event for short-window suppression.
func (e AlertEvent) ReplayKey() string {
	return e.Ticker + "|" + e.Timeframe + "|" + string(e.Direction)
}

// TickerRow is the consolidated state of one ticker. Signals holds the last
// direction seen per timeframe and is flattened into the row's JSON object,
// e.g. {"ticker":"NVDA","time":"09:31","zone":"green","AI_5m":"Buy"}.
type TickerRow struct {
	Ticker  string
	Time    string
	Zone    Zone
	Signals map[string]Direction
}

// Signal returns the direction stored for timeframe, or "".
func (r *TickerRow) Signal(timeframe string) Direction {
	if r.Signals == nil {
		return ""
	}
	return r.Signals[timeframe]
}

// SetSignal stores the direction for timeframe.
func (r *TickerRow) SetSignal(timeframe string, d Direction) {
	if r.Signals == nil {
		r.Signals = make(map[string]Direction, 3)
	}
	r.Signals[timeframe] = d
}

// Clone returns a deep copy.
func (r TickerRow) Clone() TickerRow {
	out := r
	if r.Signals != nil {
		out.Signals = make(map[string]Direction, len(r.Signals))
		for k, v := range r.Signals {
			out.Signals[k] = v
		}
	}
	return out
}

var reservedRowKeys = map[string]struct{}{"ticker": {}, "time": {}, "zone": {}}

// IsReservedRowKey reports whether k collides with a fixed TickerRow field
// and so cannot name a signal column.
func IsReservedRowKey(k string) bool {
	_, ok := reservedRowKeys[k]
	return ok
}

func (r TickerRow) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r.Signals))
	for k := range r.Signals {
		if _, reserved := reservedRowKeys[k]; reserved {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	writeField := func(k string, v string) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
		return nil
	}
	if err := writeField("ticker", r.Ticker); err != nil {
		return nil, err
	}
	for _, k := range keys {
		b.WriteByte(',')
		if err := writeField(k, string(r.Signals[k])); err != nil {
			return nil, err
		}
	}
	b.WriteByte(',')
	if err := writeField("time", r.Time); err != nil {
		return nil, err
	}
	b.WriteByte(',')
	if err := writeField("zone", string(r.Zone)); err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (r *TickerRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = TickerRow{}
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			// tolerate null and non-string extras in older documents
			continue
		}
		switch k {
		case "ticker":
			r.Ticker = s
		case "time":
			r.Time = s
		case "zone":
			r.Zone = Zone(s)
		default:
			if s != "" {
				r.SetSignal(k, Direction(s))
			}
		}
	}
	return nil
}
