package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
)

const alertDocumentKey = "alerts"

// RedisDocumentStore keeps the alert rows as one JSON value without expiry.
type RedisDocumentStore struct {
	kv cache.Service
}

func NewRedisDocumentStore(kv cache.Service) domrepo.AlertDocumentStore {
	return &RedisDocumentStore{kv: kv}
}

func (s *RedisDocumentStore) Load(ctx context.Context) ([]models.TickerRow, error) {
	b, err := s.kv.Get(ctx, alertDocumentKey)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get alerts: %w", err)
	}
	var rows []models.TickerRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	return rows, nil
}

func (s *RedisDocumentStore) Save(ctx context.Context, rows []models.TickerRow) error {
	if rows == nil {
		rows = []models.TickerRow{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode alerts: %w", err)
	}
	if err := s.kv.Set(ctx, alertDocumentKey, b, 0); err != nil {
		return fmt.Errorf("redis set alerts: %w", err)
	}
	return nil
}
