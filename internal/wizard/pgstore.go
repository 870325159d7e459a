package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitabwire/curator/model"
)

// PgStore is a PostgreSQL-backed Store using pgx/v5. Column lists and
// parameter maps are stored as JSONB.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL draft store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// HealthCheck pings the database. Used by the readiness endpoint.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts a new draft.
func (s *PgStore) Create(ctx context.Context, draft Draft) error {
	columnsJSON, paramsJSON, err := encodeDraft(draft)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO setup_drafts (
			id, subject_id, resource, title, row_key,
			step, columns, params, version,
			created_at, updated_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)`,
		draft.ID, draft.SubjectID, draft.Resource, draft.Title, draft.RowKey,
		string(draft.Step), columnsJSON, paramsJSON, draft.Version,
		draft.CreatedAt, draft.UpdatedAt, draft.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert setup draft: %w", err)
	}
	return nil
}

// Get retrieves a draft scoped to a subject. Expired drafts read as absent.
func (s *PgStore) Get(ctx context.Context, subjectID, draftID string) (Draft, error) {
	var draft Draft
	var step string
	var columnsJSON, paramsJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, subject_id, resource, title, row_key,
		       step, columns, params, version,
		       created_at, updated_at, expires_at
		FROM setup_drafts
		WHERE id = $1 AND subject_id = $2 AND expires_at > now()`,
		draftID, subjectID,
	).Scan(
		&draft.ID, &draft.SubjectID, &draft.Resource, &draft.Title, &draft.RowKey,
		&step, &columnsJSON, &paramsJSON, &draft.Version,
		&draft.CreatedAt, &draft.UpdatedAt, &draft.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return Draft{}, model.NewDraftNotFoundError(draftID)
	}
	if err != nil {
		return Draft{}, fmt.Errorf("query setup draft: %w", err)
	}

	draft.Step = Step(step)
	if err := decodeDraft(&draft, columnsJSON, paramsJSON); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

// Update persists an updated draft with optimistic locking.
func (s *PgStore) Update(ctx context.Context, draft Draft) error {
	columnsJSON, paramsJSON, err := encodeDraft(draft)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE setup_drafts SET
			title = $1,
			row_key = $2,
			step = $3,
			columns = $4,
			params = $5,
			version = $6,
			updated_at = $7
		WHERE id = $8 AND subject_id = $9 AND version = $10`,
		draft.Title, draft.RowKey, string(draft.Step),
		columnsJSON, paramsJSON, draft.Version+1,
		time.Now().UTC(),
		draft.ID, draft.SubjectID, draft.Version,
	)
	if err != nil {
		return fmt.Errorf("update setup draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewConflictError(
			fmt.Sprintf("draft %q version conflict (expected %d)", draft.ID, draft.Version),
		)
	}
	return nil
}

// Delete removes a draft scoped to a subject.
func (s *PgStore) Delete(ctx context.Context, subjectID, draftID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM setup_drafts WHERE id = $1 AND subject_id = $2`,
		draftID, subjectID,
	)
	if err != nil {
		return fmt.Errorf("delete setup draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewDraftNotFoundError(draftID)
	}
	return nil
}

// DeleteExpired removes every draft expired before the cutoff.
func (s *PgStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM setup_drafts WHERE expires_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired setup drafts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func encodeDraft(draft Draft) (columnsJSON, paramsJSON []byte, err error) {
	columnsJSON, err = json.Marshal(draft.Columns)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal draft columns: %w", err)
	}
	paramsJSON, err = json.Marshal(draft.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal draft params: %w", err)
	}
	return columnsJSON, paramsJSON, nil
}

func decodeDraft(draft *Draft, columnsJSON, paramsJSON []byte) error {
	if len(columnsJSON) > 0 {
		if err := json.Unmarshal(columnsJSON, &draft.Columns); err != nil {
			return fmt.Errorf("unmarshal draft columns: %w", err)
		}
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &draft.Params); err != nil {
			return fmt.Errorf("unmarshal draft params: %w", err)
		}
	}
	return nil
}
