package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/logger"
)

const (
	defaultPrefix = "creditkit:runs"
	defaultTTL    = 90 * 24 * time.Hour
)

// Report is the last recorded outcome of a run for a period.
type Report struct {
	Period     string         `json:"period"`
	RecordedAt time.Time      `json:"recordedAt"`
	Result     credits.Result `json:"result"`
}

// Store keeps one report per period in Redis, overwritten by every run.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithPrefix sets the key prefix. Keys are "<prefix>:<period>".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL sets the expiration of reports. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a report store. It panics if client is nil.
func New(client redis.Cmdable, opts ...Option) *Store {
	if client == nil {
		panic(ErrNilRedisClient)
	}
	s := &Store{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(period string) string {
	return s.prefix + ":" + period
}

// Save stores res as the last report of its period.
func (s *Store) Save(ctx context.Context, res credits.Result) error {
	if res.Period == "" {
		return ErrMissingPeriod
	}
	data, err := json.Marshal(Report{
		Period:     res.Period,
		RecordedAt: s.now().UTC(),
		Result:     res,
	})
	if err != nil {
		return errors.Join(ErrFailedToEncode, err)
	}
	if err := s.client.Set(ctx, s.key(res.Period), data, s.ttl).Err(); err != nil {
		return errors.Join(ErrFailedToSave, err)
	}
	return nil
}

// Last returns the last report recorded for period.
func (s *Store) Last(ctx context.Context, period string) (Report, error) {
	data, err := s.client.Get(ctx, s.key(period)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Report{}, ErrNotFound
		}
		return Report{}, errors.Join(ErrFailedToLoad, err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, errors.Join(ErrFailedToDecode, err)
	}
	r.Result.Period = r.Period
	return r, nil
}

// Record runs fn and saves its result. A failure to save is logged and does
// not affect the returned result.
func (s *Store) Record(ctx context.Context, log *slog.Logger, fn func(context.Context) credits.Result) credits.Result {
	res := fn(ctx)
	if err := s.Save(ctx, res); err != nil {
		log.ErrorContext(ctx, "failed to record run report",
			logger.Period(res.Period),
			logger.Error(err),
		)
	}
	return res
}
