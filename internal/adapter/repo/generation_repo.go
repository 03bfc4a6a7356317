package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository on Postgres.
// Clips, parameters and progress are stored as jsonb columns.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a generation repository backed by PostgreSQL.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// EnsureSchema creates the tables the repository needs when they are missing.
func (r *GenerationRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureGenerationSchema); err != nil {
		return mapDBError("ensure generation schema", err)
	}
	return nil
}

// Save inserts or replaces the generation.
func (r *GenerationRepositoryPG) Save(ctx context.Context, rec *domain.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("save generation: %w", domain.ErrInvalidPayload)
	}
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	clips := rec.Clips
	if clips == nil {
		clips = []domain.ClipSummary{}
	}
	clipsJSON, err := json.Marshal(clips)
	if err != nil {
		return fmt.Errorf("encode clips: %w", err)
	}
	progress, err := json.Marshal(rec.Progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QUpsertGeneration,
		rec.ID,
		rec.UserID,
		rec.Prompt,
		params,
		clipsJSON,
		string(rec.Status),
		progress,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return mapDBError("save generation "+rec.ID, err)
	}
	return nil
}

// Get fetches a generation by id.
func (r *GenerationRepositoryPG) Get(ctx context.Context, id string) (*domain.GenerationRecord, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectGeneration, id)
	rec, err := scanGeneration(row)
	if err != nil {
		return nil, mapDBError("load generation "+id, err)
	}
	return rec, nil
}

// List returns one page of generations, newest first, and the total count
// matching the filter.
func (r *GenerationRepositoryPG) List(ctx context.Context, filter domain.GenerationFilter) ([]domain.GenerationRecord, int, error) {
	limit, offset := filter.Bounds()
	status := string(filter.Status)

	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGenerations, status).Scan(&total); err != nil {
		return nil, 0, mapDBError("count generations", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListGenerations, status, limit, offset)
	if err != nil {
		return nil, 0, mapDBError("list generations", err)
	}
	defer rows.Close()

	out := make([]domain.GenerationRecord, 0, limit)
	for rows.Next() {
		rec, err := scanGeneration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate generations: %w", err)
	}
	return out, total, nil
}

func scanGeneration(row pgx.Row) (*domain.GenerationRecord, error) {
	var (
		rec      domain.GenerationRecord
		status   string
		params   []byte
		clips    []byte
		progress []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Prompt,
		&params,
		&clips,
		&status,
		&progress,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = domain.GenerationStatus(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rec.Parameters); err != nil {
			return nil, fmt.Errorf("decode parameters: %w", err)
		}
	}
	if len(clips) > 0 {
		if err := json.Unmarshal(clips, &rec.Clips); err != nil {
			return nil, fmt.Errorf("decode clips: %w", err)
		}
	}
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &rec.Progress); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
	}
	rec.Progress.Status = rec.Status
	return &rec, nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
