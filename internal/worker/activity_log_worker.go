package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentsift/recruitex-backend/internal/config"
	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ActivityLogWorker drains the proctoring event queue into Postgres.
// Batches go through COPY; a failed batch degrades to row-by-row inserts
// and anything still failing is requeued rather than dropped.
type ActivityLogWorker struct {
	repo *repository.ActivityLogRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewActivityLogWorker creates a new ActivityLogWorker.
func NewActivityLogWorker(repo *repository.ActivityLogRepository, rdb *redis.Client, log zerolog.Logger) *ActivityLogWorker {
	return &ActivityLogWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "activity_log_worker").Logger(),
	}
}

// Start runs the drain loop until ctx is cancelled, then flushes whatever
// is buffered.
func (w *ActivityLogWorker) Start(ctx context.Context) {
	w.log.Info().Msg("activity log worker started")

	buffer := make([]*model.ActivityLogEntry, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for PollTimeout; returns
		// immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistActivityQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var entry model.ActivityLogEntry
		if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("discarding malformed entry")
			continue
		}

		buffer = append(buffer, &entry)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ActivityLogWorker) flushSafe(ctx context.Context, batch []*model.ActivityLogEntry) {
	if err := w.repo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ActivityLogWorker) fallbackInsert(ctx context.Context, batch []*model.ActivityLogEntry) {
	requeueList := make([]*model.ActivityLogEntry, 0)

	for _, entry := range batch {
		if err := w.repo.Insert(ctx, entry); err != nil {
			// Could be a data error or the DB being down; requeue
			// everything that fails rather than risk losing audit rows.
			w.log.Error().Err(err).
				Str("session_id", entry.SessionID.String()).
				Msg("insert failed, requeueing")
			requeueList = append(requeueList, entry)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ActivityLogWorker) requeue(ctx context.Context, items []*model.ActivityLogEntry) {
	pipe := w.rdb.Pipeline()
	for _, entry := range items {
		data, _ := json.Marshal(entry)
		pipe.RPush(ctx, config.WorkerKey.PersistActivityQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: failed to requeue entries to Redis, data loss occurred")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("requeued failed entries back to Redis")
	// Avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ActivityLogWorker) shutdown(buffer []*model.ActivityLogEntry) {
	w.log.Info().Msg("worker stopping, flushing remaining buffer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
