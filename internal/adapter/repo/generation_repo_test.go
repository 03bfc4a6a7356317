package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/sqlinline"
)

var fixedTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func generationRow(t *testing.T, id string, status domain.GenerationStatus) []any {
	t.Helper()
	clips, err := json.Marshal([]domain.ClipSummary{{ClipID: "clip_1_deadbeef", JobID: "p1", Status: domain.JobStatusSucceeded}})
	require.NoError(t, err)
	return []any{
		id,
		"user-1",
		"a fox in the snow",
		[]byte(`{"aspect_ratio":"16:9","parallelize":true}`),
		clips,
		string(status),
		[]byte(`{"total_clips":1,"completed_clips":1,"failed_clips":0,"percentage":100}`),
		fixedTime,
		fixedTime,
	}
}

func TestGenerationRepositorySave(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewGenerationRepository(exec)
	rec := &domain.GenerationRecord{
		ID:        "gen-1",
		Prompt:    "a fox",
		Status:    domain.GenerationStatusQueued,
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}

	require.NoError(t, repo.Save(context.Background(), rec))
	require.Len(t, exec.execs, 1)
	call := exec.execs[0]
	assert.Equal(t, sqlinline.QUpsertGeneration, call.query)
	assert.Equal(t, "gen-1", call.args[0])
	assert.JSONEq(t, `[]`, string(call.args[4].([]byte)), "nil clips are stored as an empty array")
	assert.Equal(t, "queued", call.args[5])

	err := repo.Save(context.Background(), &domain.GenerationRecord{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestGenerationRepositoryGet(t *testing.T) {
	exec := &fakeExecutor{rows: map[string]func([]any) pgx.Row{
		sqlinline.QSelectGeneration: func(args []any) pgx.Row {
			if args[0] != "gen-1" {
				return simpleRow{}
			}
			return simpleRow{scan: func(dest ...any) error {
				return assignRow(generationRow(t, "gen-1", domain.GenerationStatusCompleted), dest)
			}}
		},
	}}
	repo := NewGenerationRepository(exec)

	rec, err := repo.Get(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationStatusCompleted, rec.Status)
	assert.Equal(t, "16:9", rec.Parameters.AspectRatio)
	require.Len(t, rec.Clips, 1)
	assert.Equal(t, "p1", rec.Clips[0].JobID)
	assert.InDelta(t, 100, rec.Progress.Percentage, 0.001)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerationRepositoryList(t *testing.T) {
	exec := &fakeExecutor{
		rows: map[string]func([]any) pgx.Row{
			sqlinline.QCountGenerations: func(args []any) pgx.Row {
				return simpleRow{scan: func(dest ...any) error {
					*dest[0].(*int) = 7
					return nil
				}}
			},
		},
		query: func(query string, args []any) (pgx.Rows, error) {
			return &sliceRows{rows: [][]any{
				generationRow(t, "gen-2", domain.GenerationStatusProcessing),
				generationRow(t, "gen-1", domain.GenerationStatusProcessing),
			}}, nil
		},
	}
	repo := NewGenerationRepository(exec)

	recs, total, err := repo.List(context.Background(), domain.GenerationFilter{Limit: 500, Offset: -3, Status: domain.GenerationStatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, recs, 2)
	assert.Equal(t, "gen-2", recs[0].ID)
	assert.Equal(t, []any{"processing", domain.MaxPageSize, 0}, exec.queryArg)
}
