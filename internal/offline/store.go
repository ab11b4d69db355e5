package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/gateway"
)

// ErrRecordNotFound indicates the offline document does not exist.
var ErrRecordNotFound = errors.New("offline document not found")

// Status values of an offline document.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusFailed  = "failed"
)

// Record is a document captured locally while the gateway was unreachable.
type Record struct {
	ID           uuid.UUID
	Number       string
	Document     gateway.Document
	Reason       string
	Status       string
	Attempts     int
	LastError    string
	RemoteNumber string
	CreatedAt    time.Time
	SyncedAt     *time.Time
}

// Store persists offline documents in Postgres until they are replayed to
// the gateway.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

// NewStore constructs an offline document store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Insert captures a document under a locally issued placeholder number. The
// placeholder makes the slip printable at the till before the gateway has
// assigned the real document number.
func (s *Store) Insert(ctx context.Context, doc gateway.Document, reason string) (Record, error) {
	if s == nil || s.Pool == nil {
		return Record{}, errors.New("offline: store not configured")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return Record{}, fmt.Errorf("offline: marshal document: %w", err)
	}
	rec := Record{
		Document:  doc,
		Reason:    reason,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	for attempt := 0; ; attempt++ {
		rec.ID = uuid.New()
		rec.Number = placeholderNumber(rec.CreatedAt, rec.ID)
		_, err = s.Pool.Exec(ctx, `
		INSERT INTO offline_documents (id, doc_number, payload, reason, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`,
			rec.ID, rec.Number, payload, reason, StatusPending, rec.CreatedAt,
		)
		if err == nil {
			return rec, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && attempt < 2 {
			continue
		}
		return Record{}, fmt.Errorf("offline: insert document: %w", err)
	}
}

// Get loads one offline document.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, doc_number, payload, reason, status, attempts,
		       COALESCE(last_error, ''), COALESCE(remote_number, ''), created_at, synced_at
		FROM offline_documents WHERE id = $1`, id)
	return scanRecord(row)
}

// ListPending returns documents still waiting to be replayed, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, doc_number, payload, reason, status, attempts,
		       COALESCE(last_error, ''), COALESCE(remote_number, ''), created_at, synced_at
		FROM offline_documents
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkSynced records the gateway-assigned number for a replayed document.
func (s *Store) MarkSynced(ctx context.Context, id uuid.UUID, remoteNumber string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE offline_documents
		SET status = $1, remote_number = $2, synced_at = $3, last_error = NULL
		WHERE id = $4`,
		StatusSynced, remoteNumber, s.now(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offline document %s: %w", id, ErrRecordNotFound)
	}
	return nil
}

// MarkAttempt bumps the attempt counter after a failed replay. Once attempts
// reach maxAttempts the document is parked as failed and needs operator
// intervention.
func (s *Store) MarkAttempt(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) error {
	status := StatusPending
	row := s.Pool.QueryRow(ctx, `
		UPDATE offline_documents
		SET attempts = attempts + 1, last_error = $1
		WHERE id = $2
		RETURNING attempts`, cause, id)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("offline document %s: %w", id, ErrRecordNotFound)
		}
		return err
	}
	if maxAttempts > 0 && attempts >= maxAttempts {
		status = StatusFailed
		_, err := s.Pool.Exec(ctx,
			`UPDATE offline_documents SET status = $1 WHERE id = $2`, status, id)
		return err
	}
	return nil
}

// CountPending reports how many documents still wait for sync.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM offline_documents WHERE status = $1`, StatusPending).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var payload []byte
	var syncedAt *time.Time
	err := row.Scan(&rec.ID, &rec.Number, &payload, &rec.Reason, &rec.Status,
		&rec.Attempts, &rec.LastError, &rec.RemoteNumber, &rec.CreatedAt, &syncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	rec.SyncedAt = syncedAt
	if err := json.Unmarshal(payload, &rec.Document); err != nil {
		return Record{}, fmt.Errorf("offline: unmarshal document %s: %w", rec.ID, err)
	}
	return rec, nil
}

func placeholderNumber(now time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:8]
	return fmt.Sprintf("OFF-%s-%s", now.Format("20060102"), suffix)
}
