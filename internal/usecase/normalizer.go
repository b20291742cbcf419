package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/util"

	"github.com/go-playground/validator/v10"
)

// maxUnwraps bounds how many times a string payload (or a "message" wrapper)
// is decoded again.
const maxUnwraps = 2

// Normalizer turns a raw webhook body into an AlertEvent.
type Normalizer struct {
	timeframes domrepo.Timeframes
	loc        *time.Location
	now        func() time.Time
	validate   *validator.Validate
	// openTimeframes accepts any timeframe that can name a row column.
	openTimeframes bool
}

type NormalizerOption func(*Normalizer)

// WithUnknownTimeframes accepts unlisted timeframes as new signal columns.
func WithUnknownTimeframes() NormalizerOption {
	return func(n *Normalizer) { n.openTimeframes = true }
}

func NewNormalizer(timeframes domrepo.Timeframes, loc *time.Location, opts ...NormalizerOption) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	n := &Normalizer{timeframes: timeframes, loc: loc, now: time.Now, validate: v}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize decodes and canonicalizes body. It returns *models.ValidationError
// when a required field is empty or the timeframe is not accepted.
func (n *Normalizer) Normalize(body []byte) (*models.AlertEvent, error) {
	payload := decodePayload(body)

	dir := classifyDirection(firstPresent(payload, "alert", "Alert"))
	ev := &models.AlertEvent{
		Ticker:    strings.ToUpper(strings.TrimSpace(stringify(firstPresent(payload, "Ticker", "ticker")))),
		Timeframe: strings.TrimSpace(stringify(firstPresent(payload, "timeframe", "Timeframe"))),
		Direction: dir,
		Time:      n.normalizeTime(firstTruthy(payload, "time", "Time", "timenow")),
		Zone:      dir.Zone(),
	}

	if err := n.validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return nil, &models.ValidationError{Fields: fields}
		}
		return nil, fmt.Errorf("validate alert: %w", err)
	}
	if !n.acceptTimeframe(ev.Timeframe) {
		return nil, &models.ValidationError{Fields: []string{"timeframe"}}
	}
	return ev, nil
}

func (n *Normalizer) acceptTimeframe(tf string) bool {
	if n.timeframes.IsValid(tf) {
		return true
	}
	return n.openTimeframes && !models.IsReservedRowKey(tf)
}

// decodePayload accepts an object, a JSON-encoded string, or an object that
// wraps a JSON-encoded string under "message". A failed decode keeps the last
// value that did decode.
func decodePayload(body []byte) map[string]any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]any{}
	}

unwrap:
	for i := 0; i < maxUnwraps; i++ {
		var inner string
		switch t := v.(type) {
		case string:
			inner = t
		case map[string]any:
			msg, ok := t["message"].(string)
			if !ok {
				return t
			}
			inner = msg
		default:
			return map[string]any{}
		}

		var next any
		if err := json.Unmarshal([]byte(inner), &next); err != nil {
			break unwrap
		}
		switch next.(type) {
		case string, map[string]any:
			v = next
		default:
			break unwrap
		}
	}

	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// classifyDirection maps anything containing "sell" to Sell. Everything else,
// including missing or non-string values, is Buy.
func classifyDirection(v any) models.Direction {
	s, ok := v.(string)
	if ok && strings.Contains(strings.ToLower(s), "sell") {
		return models.DirectionSell
	}
	return models.DirectionBuy
}

// normalizeTime renders v as local HH:MM. Digit-only values are epoch
// milliseconds. Unparseable strings pass through unchanged.
func (n *Normalizer) normalizeTime(v any) string {
	if v == nil {
		return util.ClockHHMM(n.now(), n.loc)
	}
	s := strings.TrimSpace(stringify(v))
	if util.IsDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return util.ClockHHMM(time.UnixMilli(ms), n.loc)
		}
	}
	if t, ok := util.ParseTimeIn(s, n.loc); ok {
		return util.ClockHHMM(t, n.loc)
	}
	return stringify(v)
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// firstTruthy skips absent, null, empty, zero and false values.
func firstTruthy(m map[string]any, keys ...string) any {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return v
			}
		case bool:
			if v {
				return v
			}
		default:
			return v
		}
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
