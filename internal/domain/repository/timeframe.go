package repository

import "strings"

// Timeframes is the set of recognized signal timeframes. The primary one
// (the 5-minute tag by default) is authoritative for a row's zone and time.
type Timeframes struct {
	primary string
	order   []string
	known   map[string]struct{}
}

// NewTimeframes builds the set. primary is added when missing from all.
func NewTimeframes(all []string, primary string) Timeframes {
	t := Timeframes{primary: primary, known: make(map[string]struct{}, len(all)+1)}
	for _, tf := range append([]string{primary}, all...) {
		tf = strings.TrimSpace(tf)
		if tf == "" {
			continue
		}
		if _, ok := t.known[tf]; ok {
			continue
		}
		t.known[tf] = struct{}{}
		t.order = append(t.order, tf)
	}
	return t
}

// IsValid returns true if tf is a recognized timeframe.
func (t Timeframes) IsValid(tf string) bool {
	_, ok := t.known[tf]
	return ok
}

// IsPrimary returns true if tf is the authoritative timeframe.
func (t Timeframes) IsPrimary(tf string) bool { return tf == t.primary }

// Primary returns the authoritative timeframe.
func (t Timeframes) Primary() string { return t.primary }

// All returns the recognized timeframes, primary first.
func (t Timeframes) All() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
