package callagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fixline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CallRecord is the persisted state of one call attempt.
type CallRecord struct {
	ID           uuid.UUID
	CallSID      *string
	LeadID       uuid.UUID
	BusinessID   *uuid.UUID
	CallType     CallType
	TargetNumber string
	Attempt      int
	Context      CallContext
	Outcome      *CallOutcome
	RecordingKey *string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Repository persists call records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a call record repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts a call record keyed by call ID. Saving the same record twice
// leaves one row in the same final state.
func (r *Repository) Save(ctx context.Context, rec CallRecord) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("encode call context: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO call_records (id, call_sid, lead_id, business_id, call_type, target_number, attempt, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			call_sid = EXCLUDED.call_sid,
			attempt = EXCLUDED.attempt
	`, rec.ID, rec.CallSID, rec.LeadID, rec.BusinessID, rec.CallType, rec.TargetNumber, rec.Attempt, contextJSON)
	return err
}

// AttachCallSID records the telephony call identifier once the provider
// assigns it.
func (r *Repository) AttachCallSID(ctx context.Context, callID uuid.UUID, callSID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE call_records SET call_sid = $2 WHERE id = $1`, callID, callSID)
	return err
}

// GetByID returns one call record with its decoded context.
func (r *Repository) GetByID(ctx context.Context, callID uuid.UUID) (CallRecord, error) {
	return r.get(ctx, `WHERE id = $1`, callID)
}

// GetByCallSID looks a record up by the telephony call identifier. The bridge
// uses this to fetch the immutable call context on call-start.
func (r *Repository) GetByCallSID(ctx context.Context, callSID string) (CallRecord, error) {
	return r.get(ctx, `WHERE call_sid = $1`, callSID)
}

func (r *Repository) get(ctx context.Context, where string, arg any) (CallRecord, error) {
	var (
		rec         CallRecord
		contextJSON []byte
		outcomeJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, call_sid, lead_id, business_id, call_type, target_number, attempt,
			context, outcome, recording_key, created_at, completed_at
		FROM call_records `+where, arg).Scan(
		&rec.ID, &rec.CallSID, &rec.LeadID, &rec.BusinessID, &rec.CallType,
		&rec.TargetNumber, &rec.Attempt, &contextJSON, &outcomeJSON,
		&rec.RecordingKey, &rec.CreatedAt, &rec.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CallRecord{}, apperr.NotFound("call record not found")
	}
	if err != nil {
		return CallRecord{}, err
	}

	if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
		return CallRecord{}, fmt.Errorf("decode call context: %w", err)
	}
	if len(outcomeJSON) > 0 {
		var outcome CallOutcome
		if err := json.Unmarshal(outcomeJSON, &outcome); err != nil {
			return CallRecord{}, fmt.Errorf("decode call outcome: %w", err)
		}
		rec.Outcome = &outcome
	}

	return rec, nil
}

// SaveOutcome attaches the durable outcome to a completed call. The write is
// idempotent: the first outcome wins and later writes of the same call are
// no-ops, so a retried persistence cannot overwrite history.
func (r *Repository) SaveOutcome(ctx context.Context, callID uuid.UUID, outcome CallOutcome, recordingKey *string) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode call outcome: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE call_records
		SET outcome = $2, recording_key = COALESCE($3, recording_key), completed_at = now()
		WHERE id = $1 AND completed_at IS NULL
	`, callID, outcomeJSON, recordingKey)
	return err
}

// SweepStale closes out call records that started before the cutoff and never
// received an outcome, so crashed sessions do not dangle forever. Returns the
// number of records closed.
func (r *Repository) SweepStale(ctx context.Context, before time.Time) (int64, error) {
	outcomeJSON, err := json.Marshal(CallOutcome{
		Status:        OutcomeError,
		Summary:       "Call never reported an outcome and was closed by the stale sweep.",
		InterestLevel: "unknown",
		NextAction:    "review call logs",
	})
	if err != nil {
		return 0, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE call_records
		SET outcome = $2, completed_at = now()
		WHERE completed_at IS NULL AND created_at < $1
	`, before, outcomeJSON)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByLead returns all call records for a lead, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]CallRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, call_sid, lead_id, business_id, call_type, target_number, attempt,
			context, outcome, recording_key, created_at, completed_at
		FROM call_records
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]CallRecord, 0)
	for rows.Next() {
		var (
			rec         CallRecord
			contextJSON []byte
			outcomeJSON []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.CallSID, &rec.LeadID, &rec.BusinessID, &rec.CallType,
			&rec.TargetNumber, &rec.Attempt, &contextJSON, &outcomeJSON,
			&rec.RecordingKey, &rec.CreatedAt, &rec.CompletedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
			return nil, fmt.Errorf("decode call context: %w", err)
		}
		if len(outcomeJSON) > 0 {
			var outcome CallOutcome
			if err := json.Unmarshal(outcomeJSON, &outcome); err != nil {
				return nil, fmt.Errorf("decode call outcome: %w", err)
			}
			rec.Outcome = &outcome
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
