package athlete

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/wodsense/internal/models"
)

func setupAssembler(t *testing.T) (*Assembler, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewAssembler(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func completedWod(text, resultValue, resultType string, feeling int, note string) models.Wod {
	w := models.Wod{
		OriginalText: sql.NullString{String: text, Valid: text != ""},
		ResultValue:  sql.NullString{String: resultValue, Valid: resultValue != ""},
		ResultType:   sql.NullString{String: resultType, Valid: resultType != ""},
		Feeling:      sql.NullInt64{Int64: int64(feeling), Valid: feeling != 0},
		CompletedAt:  sql.NullTime{Time: time.Now(), Valid: true},
	}
	if note != "" {
		w.AthleteNotes = sql.NullString{String: note, Valid: true}
	}
	return w
}

func TestRenderHistoryEmptyUsesSentinel(t *testing.T) {
	got := RenderHistory(nil)
	assert.Equal(t, NoHistorySentinel, got)
	assert.NotEmpty(t, got, "history section must never be an empty string")
}

func TestRenderHistoryLines(t *testing.T) {
	wods := []models.Wod{
		completedWod("Fran: 21-15-9 thrusters and pull-ups", "3:45", "time", 4, "unbroken thrusters"),
		completedWod("5k run", "22:10", "time", 1, ""),
	}

	got := RenderHistory(wods)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "Fran: 21-15-9 thrusters and pull-ups")
	assert.Contains(t, lines[0], "3:45 (time)")
	assert.Contains(t, lines[0], "felt great")
	assert.Contains(t, lines[0], "note: unbroken thrusters")

	assert.Contains(t, lines[1], "5k run")
	assert.Contains(t, lines[1], "felt rough")
	assert.NotContains(t, lines[1], "note:")
}

func TestRenderHistoryTruncatesLongText(t *testing.T) {
	long := strings.Repeat("burpees ", 30)
	got := RenderHistory([]models.Wod{completedWod(long, "100", "reps", 2, "")})

	assert.Contains(t, got, "…")
	// 60 runes of summary plus ellipsis, never the full text.
	assert.NotContains(t, got, long)
}

func TestFeelingLabelBounds(t *testing.T) {
	assert.Equal(t, "rough", models.FeelingLabel(1))
	assert.Equal(t, "great", models.FeelingLabel(4))
	assert.Equal(t, "okay", models.FeelingLabel(0))
	assert.Equal(t, "okay", models.FeelingLabel(9))
}

const selectProfileSQL = `SELECT id, full_name, age, sex, height_cm, experience_years, prs, injuries, created_at
		 FROM profiles WHERE id = $1`

func profileColumns() []string {
	return []string{"id", "full_name", "age", "sex", "height_cm", "experience_years", "prs", "injuries", "created_at"}
}

func expectEmptyHistory(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("(?s)SELECT (.+) FROM wods").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func TestAssembleMissingProfileUsesNamedDefaults(t *testing.T) {
	assembler, mock := setupAssembler(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectProfileSQL)).
		WithArgs("acc-1").
		WillReturnError(sql.ErrNoRows)
	expectEmptyHistory(mock)

	actx, err := assembler.Assemble(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultAthleteName, actx.Name)
	assert.Equal(t, NoInjuries, actx.Injuries)
	assert.Empty(t, actx.PRs)
	assert.Equal(t, NoHistorySentinel, actx.HistoryText)
}

func TestAssembleProfileFetchErrorIsFatal(t *testing.T) {
	assembler, mock := setupAssembler(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectProfileSQL)).
		WithArgs("acc-1").
		WillReturnError(errors.New("connection reset"))

	_, err := assembler.Assemble(context.Background(), "acc-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows, "a datastore hiccup must not be defaulted away")
}

func TestAssemblePopulatesFromProfileRow(t *testing.T) {
	assembler, mock := setupAssembler(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectProfileSQL)).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow("acc-1", "Maria Silva", 34, "female", 165.0, 2.5,
				[]byte(`{"squat":100,"deadlift":120}`), "left shoulder impingement", time.Now()))
	expectEmptyHistory(mock)

	actx, err := assembler.Assemble(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", actx.Name)
	assert.Equal(t, 34, actx.Age)
	assert.Equal(t, 2.5, actx.ExperienceYears)
	assert.Equal(t, 100.0, actx.PRs["squat"])
	assert.Equal(t, "left shoulder impingement", actx.Injuries)
}

func TestAssembleUnauthenticated(t *testing.T) {
	assembler, _ := setupAssembler(t)

	_, err := assembler.Assemble(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)
}
