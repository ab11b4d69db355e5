package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/gateway"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// TaskSyncDocument replays one offline document to the gateway.
const TaskSyncDocument = "offline:sync-document"

// QueueName is the asynq queue offline sync tasks run on.
const QueueName = "offline-sync"

type syncPayload struct {
	RecordID uuid.UUID `json:"recordId"`
}

// NewSyncTask builds the asynq task for one offline document.
func NewSyncTask(recordID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(syncPayload{RecordID: recordID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncDocument, payload, asynq.Queue(QueueName)), nil
}

// Recorder captures documents in the store and schedules their replay. It is
// the offline fallback the sale service finalizes against.
type Recorder struct {
	Store  *Store
	Tasks  *asynq.Client
	Logger zerolog.Logger
}

// Record stores the document and enqueues a sync task. A failed enqueue is
// only logged: the periodic sweep picks up anything still pending.
func (r *Recorder) Record(ctx context.Context, doc gateway.Document, reason string) (string, error) {
	rec, err := r.Store.Insert(ctx, doc, reason)
	if err != nil {
		return "", err
	}
	if r.Tasks != nil {
		task, err := NewSyncTask(rec.ID)
		if err == nil {
			_, err = r.Tasks.EnqueueContext(ctx, task)
		}
		if err != nil {
			r.Logger.Warn().Err(err).Str("document_number", rec.Number).
				Msg("offline sync enqueue failed, sweep will retry")
		}
	}
	return rec.Number, nil
}

// DocumentCreator pushes a finalized document to the gateway.
type DocumentCreator interface {
	CreateDocument(ctx context.Context, doc gateway.Document) (string, error)
}

// Syncer replays offline documents to the gateway.
type Syncer struct {
	Store       *Store
	Documents   DocumentCreator
	MaxAttempts int
	Logger      zerolog.Logger
}

// HandleSync processes one offline sync task. Returning an error lets asynq
// retry with its own backoff; documents that exhaust MaxAttempts are parked
// as failed and not retried further.
func (s *Syncer) HandleSync(ctx context.Context, t *asynq.Task) error {
	var payload syncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("offline: decode sync payload: %w", err)
	}
	return s.sync(ctx, payload.RecordID)
}

func (s *Syncer) sync(ctx context.Context, id uuid.UUID) error {
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if rec.Status != StatusPending {
		return nil
	}

	number, err := s.Documents.CreateDocument(ctx, rec.Document)
	if err != nil {
		s.Logger.Warn().Err(err).Str("document_number", rec.Number).Int("attempts", rec.Attempts+1).
			Msg("offline document replay failed")
		if merr := s.Store.MarkAttempt(ctx, rec.ID, err.Error(), s.MaxAttempts); merr != nil {
			return merr
		}
		if s.MaxAttempts > 0 && rec.Attempts+1 >= s.MaxAttempts {
			return nil
		}
		return err
	}

	if err := s.Store.MarkSynced(ctx, rec.ID, number); err != nil {
		return err
	}
	s.Logger.Info().Str("document_number", rec.Number).Str("remote_number", number).
		Msg("offline document synced")
	return nil
}

// SweepPending re-enqueues sync tasks for documents that are still pending,
// covering enqueue failures and worker restarts. It also refreshes the
// pending-documents gauge.
func (s *Syncer) SweepPending(ctx context.Context, tasks *asynq.Client, limit int) error {
	if count, err := s.Store.CountPending(ctx); err == nil {
		obs.OfflinePendingDocuments.Set(float64(count))
	}
	pending, err := s.Store.ListPending(ctx, limit)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		task, err := NewSyncTask(rec.ID)
		if err != nil {
			return err
		}
		if _, err := tasks.EnqueueContext(ctx, task,
			asynq.TaskID(rec.ID.String()), asynq.Retention(time.Hour)); err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			return err
		}
	}
	return nil
}
