package feedback

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/wodsense/internal/analysis"
	"github.com/illegalcall/wodsense/internal/models"
	"github.com/illegalcall/wodsense/internal/wods"
)

type fakeGemini struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGemini) GenerateContent(ctx context.Context, model string, parts []analysis.GeminiPart) (string, error) {
	f.prompt = parts[0].Text
	return f.reply, f.err
}

func setupGenerator(t *testing.T, client analysis.GeminiClient) (*Generator, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	store := wods.NewStore(sqlx.NewDb(mockDB, "sqlmock"), nil, nil, time.Hour)
	return NewGenerator(client, store, "test-model", 5*time.Second), mock
}

func wodRow() *sqlmock.Rows {
	cols := []string{"id", "account_id", "image_url", "original_text", "analysis", "result_type",
		"result_value", "feeling", "athlete_notes", "post_wod_feedback", "created_at", "completed_at"}
	return sqlmock.NewRows(cols).
		AddRow("wod-1", "acc-1", nil, "Fran", nil, "time", "3:45", 4, nil, nil, time.Now(), time.Now())
}

func completionRequest() Request {
	return Request{
		Summary:     "Fran: 21-15-9 thrusters and pull-ups",
		ResultType:  models.ResultTime,
		ResultValue: "3:45",
		Feeling:     4,
	}
}

func TestGenerateAttachesFeedback(t *testing.T) {
	client := &fakeGemini{reply: "Strong Fran time. Next time hold bigger pull-up sets."}
	gen, mock := setupGenerator(t, client)

	mock.ExpectQuery("(?s)SELECT (.+) FROM wods WHERE id =").
		WithArgs("wod-1", "acc-1").
		WillReturnRows(wodRow())
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE wods SET post_wod_feedback = $1 WHERE id = $2 AND account_id = $3`)).
		WithArgs(client.reply, "wod-1", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	text, err := gen.Generate(context.Background(), "acc-1", "wod-1", completionRequest())
	require.NoError(t, err)
	assert.Equal(t, client.reply, text)

	assert.Contains(t, client.prompt, "Fran: 21-15-9 thrusters and pull-ups")
	assert.Contains(t, client.prompt, "3:45 (time)")
	assert.Contains(t, client.prompt, "How it felt: great")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateProviderFailureLeavesRecordUntouched(t *testing.T) {
	client := &fakeGemini{err: models.ErrProvider}
	gen, mock := setupGenerator(t, client)

	mock.ExpectQuery("(?s)SELECT (.+) FROM wods WHERE id =").
		WillReturnRows(wodRow())

	_, err := gen.Generate(context.Background(), "acc-1", "wod-1", completionRequest())
	assert.ErrorIs(t, err, models.ErrFeedbackUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet(), "no UPDATE may run when generation fails")
}

func TestGenerateForeignWorkoutIsNotAuthorized(t *testing.T) {
	client := &fakeGemini{reply: "never called"}
	gen, mock := setupGenerator(t, client)

	// Account-scoped lookup cannot see someone else's record.
	mock.ExpectQuery("(?s)SELECT (.+) FROM wods WHERE id =").
		WithArgs("wod-1", "acc-2").
		WillReturnError(sql.ErrNoRows)

	_, err := gen.Generate(context.Background(), "acc-2", "wod-1", completionRequest())
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
	assert.Empty(t, client.prompt, "no model call for a workout the caller cannot write to")
}

func TestGenerateTruncatesLongNotes(t *testing.T) {
	client := &fakeGemini{reply: strings.Repeat("keep moving ", 100)}
	gen, mock := setupGenerator(t, client)

	mock.ExpectQuery("(?s)SELECT (.+) FROM wods WHERE id =").
		WillReturnRows(wodRow())
	mock.ExpectExec("UPDATE wods SET post_wod_feedback").
		WillReturnResult(sqlmock.NewResult(0, 1))

	text, err := gen.Generate(context.Background(), "acc-1", "wod-1", completionRequest())
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(text)), maxFeedbackRunes)
}

func TestGenerateRejectsInvalidFeeling(t *testing.T) {
	gen, _ := setupGenerator(t, &fakeGemini{})

	req := completionRequest()
	req.Feeling = 0
	_, err := gen.Generate(context.Background(), "acc-1", "wod-1", req)
	assert.Error(t, err)
}
