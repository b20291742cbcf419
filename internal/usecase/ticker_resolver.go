package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/util"
)

// ExplicitTickers is the caller-supplied list, usually from the -tickers flag.
type ExplicitTickers []string

// Where a resolved ticker set came from.
const (
	TickerSourceExplicit = "explicit"
	TickerSourceConfig   = "config"
	TickerSourceFile     = "file"
	TickerSourceStore    = "store"
	TickerSourceNone     = "none"
)

// TickerSource lists tickers already seen by the alert store.
type TickerSource interface {
	Tickers(ctx context.Context) []string
}

// TickerResolver picks the pivot engine's working set from the first
// non-empty source: explicit list, configured list, ticker file, alert store.
type TickerResolver struct {
	explicit   []string
	configured []string
	file       string
	store      TickerSource
	logger     *applogger.Logger
}

func NewTickerResolver(explicit ExplicitTickers, configured []string, file string, store TickerSource, logger *applogger.Logger) *TickerResolver {
	return &TickerResolver{
		explicit:   explicit,
		configured: configured,
		file:       file,
		store:      store,
		logger:     logger.Component("ticker_resolver"),
	}
}

// Resolve returns the uppercased, de-duplicated tickers and the source name.
func (r *TickerResolver) Resolve(ctx context.Context) ([]string, string) {
	if t := util.NormalizeSymbols(r.explicit); len(t) > 0 {
		return r.resolved(t, TickerSourceExplicit)
	}
	if t := util.NormalizeSymbols(r.configured); len(t) > 0 {
		return r.resolved(t, TickerSourceConfig)
	}
	if r.file != "" {
		lines, err := readTickerFile(r.file)
		if err != nil {
			r.logger.Warn("read ticker file failed", applogger.String("path", r.file), applogger.Error(err))
		} else if t := util.NormalizeSymbols(lines); len(t) > 0 {
			return r.resolved(t, TickerSourceFile)
		}
	}
	if r.store != nil {
		if t := util.NormalizeSymbols(r.store.Tickers(ctx)); len(t) > 0 {
			return r.resolved(t, TickerSourceStore)
		}
	}
	r.logger.Warn("no pivot tickers resolved, engine will run with an empty set")
	return []string{}, TickerSourceNone
}

func (r *TickerResolver) resolved(tickers []string, source string) ([]string, string) {
	r.logger.Info("pivot tickers resolved",
		applogger.String("source", source),
		applogger.Int("count", len(tickers)),
		applogger.Strings("tickers", tickers),
	)
	return tickers, source
}

func readTickerFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ticker file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ticker file: %w", err)
	}
	return lines, nil
}
