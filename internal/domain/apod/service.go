// Package apod caches Astronomy Picture of the Day records in SQLite.
// APOD entries are immutable once published, so a row per date never
// needs invalidation; caching keeps repeat lookups off NASA's rate limit.
package apod

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orrery-labs/orrery/internal/infra/nasa"
)

// apodFetcher is the slice of the NASA client this service needs.
type apodFetcher interface {
	APOD(ctx context.Context, date string) (*nasa.APODRecord, error)
}

// Service reads the apod_cache table and falls back to the upstream API.
type Service struct {
	db      *sql.DB
	fetcher apodFetcher
}

func NewService(db *sql.DB, fetcher apodFetcher) *Service {
	return &Service{db: db, fetcher: fetcher}
}

// GetByDate returns the APOD for a date, answering from the cache when
// possible. The second return reports whether the cache answered.
// An empty date means today: those always go upstream because the
// current APOD date is decided by NASA, not by the local clock.
func (s *Service) GetByDate(ctx context.Context, date string) (*nasa.APODRecord, bool, error) {
	if date != "" {
		rec, err := s.lookup(ctx, date)
		if err == nil {
			return rec, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("apod cache lookup %s: %w", date, err)
		}
	}

	rec, err := s.fetcher.APOD(ctx, date)
	if err != nil {
		return nil, false, err
	}

	if err := s.store(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("apod cache store %s: %w", rec.Date, err)
	}
	return rec, false, nil
}

// CachedDates returns the dates currently held in the cache, newest first.
func (s *Service) CachedDates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT date FROM apod_cache ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("apod cache dates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("apod cache dates: scan: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Service) lookup(ctx context.Context, date string) (*nasa.APODRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT date, title, explanation, url, hd_url, media_type, copyright, raw
		 FROM apod_cache WHERE date = ?`, date)

	var rec nasa.APODRecord
	err := row.Scan(&rec.Date, &rec.Title, &rec.Explanation, &rec.URL,
		&rec.HDURL, &rec.MediaType, &rec.Copyright, &rec.Raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) store(ctx context.Context, rec *nasa.APODRecord) error {
	raw := rec.Raw
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO apod_cache (date, title, explanation, url, hd_url, media_type, copyright, raw, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO NOTHING`,
		rec.Date, rec.Title, rec.Explanation, rec.URL,
		rec.HDURL, rec.MediaType, rec.Copyright, raw,
		time.Now().UTC().Format(time.RFC3339))
	return err
}
