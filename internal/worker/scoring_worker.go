package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/apperror"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/model"
	"github.com/stemsi/quizlr/internal/scoring"
	"golang.org/x/sync/errgroup"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
	// ScoreConcurrency bounds the sessions scored at once within a batch.
	ScoreConcurrency = 4
)

// Scorer computes and stores the scores of one completed session.
type Scorer interface {
	ScoreSession(ctx context.Context, sessionID uuid.UUID, strategies []scoring.Strategy) ([]model.ScoreRecord, error)
}

// ScoringWorker consumes score_sessions_queue and scores every completed
// session with the configured strategies.
type ScoringWorker struct {
	scorer     Scorer
	rdb        *redis.Client
	strategies []scoring.Strategy
	log        zerolog.Logger
}

// NewScoringWorker creates a new ScoringWorker. rdb may be nil when only
// Process is used.
func NewScoringWorker(scorer Scorer, rdb *redis.Client, strategies []scoring.Strategy, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		scorer:     scorer,
		rdb:        rdb,
		strategies: strategies,
		log:        log.With().Str("component", "scoring_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes the pending batch. Call
// in a goroutine.
func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make([]model.ScoreJob, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.ScoreSessionsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job model.ScoreJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, job)
		}
	}
}

func (w *ScoringWorker) flush(ctx context.Context, batch []model.ScoreJob) {
	if len(batch) == 0 {
		return
	}

	for _, job := range w.Process(ctx, batch) {
		raw, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if err := w.rdb.RPush(ctx, config.WorkerKey.ScoreSessionsQueue, raw).Err(); err != nil {
			w.log.Error().Err(err).Str("session_id", job.SessionID.String()).Msg("Requeue failed, job lost")
		}
	}
}

// ----------------------------------------------------------------
// Batch processing
// ----------------------------------------------------------------

// Process scores every job of batch and returns the jobs worth retrying.
// Jobs that can never succeed (unknown session, session not completed,
// bad strategy list) are logged and dropped.
func (w *ScoringWorker) Process(ctx context.Context, batch []model.ScoreJob) []model.ScoreJob {
	var (
		mu    sync.Mutex
		retry []model.ScoreJob
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ScoreConcurrency)
	for _, job := range batch {
		g.Go(func() error {
			err := w.processOne(gctx, job)
			if err == nil {
				return nil
			}

			log := w.log.With().Str("session_id", job.SessionID.String()).Logger()
			if !retryable(err) {
				log.Warn().Err(err).Msg("Dropping score job")
				return nil
			}
			log.Error().Err(err).Msg("Score job failed, requeueing")
			mu.Lock()
			retry = append(retry, job)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if n := len(batch) - len(retry); n > 0 {
		w.log.Debug().Int("count", n).Msg("Processed score jobs")
	}
	return retry
}

func (w *ScoringWorker) processOne(ctx context.Context, job model.ScoreJob) error {
	strategies := w.strategies
	if len(job.Strategies) > 0 {
		var err error
		strategies, err = parseNames(job.Strategies)
		if err != nil {
			return err
		}
	}
	if _, err := w.scorer.ScoreSession(ctx, job.SessionID, strategies); err != nil {
		return fmt.Errorf("score session: %w", err)
	}
	return nil
}

func parseNames(names []string) ([]scoring.Strategy, error) {
	out := make([]scoring.Strategy, 0, len(names))
	for _, name := range names {
		s, err := scoring.Parse(name, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// retryable reports whether a failed job may succeed later. Engine errors
// are deterministic; storage outages and timeouts are not.
func retryable(err error) bool {
	switch apperror.CategoryOf(err) {
	case apperror.CategorySession, apperror.CategoryScoring, apperror.CategoryValidation, apperror.CategoryBuild:
		return false
	}
	switch apperror.CodeOf(err) {
	case apperror.CodeNotFound, apperror.CodeCorruptRecord, apperror.CodeUnsupportedVersion:
		return false
	}
	return true
}
