package wods

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/wodsense/internal/models"
)

const (
	saveResultSQL = `
		UPDATE wods
		SET result_type = $1, result_value = $2, feeling = $3,
		    athlete_notes = NULLIF($4, ''), completed_at = NOW()
		WHERE id = $5 AND account_id = $6`
	attachFeedbackSQL = `UPDATE wods SET post_wod_feedback = $1 WHERE id = $2 AND account_id = $3`
)

func TestGetNotFound(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectQuery("(?s)SELECT (.+) FROM wods WHERE id =").
		WithArgs("wod-1", "acc-1").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "acc-1", "wod-1")
	assert.ErrorIs(t, err, models.ErrWodNotFound)
}

func TestGetEphemeralMissingStash(t *testing.T) {
	store, _, _ := setupStore(t, nil)

	_, err := store.Get(context.Background(), "acc-1", "temp-gone")
	assert.ErrorIs(t, err, models.ErrWodNotFound)
}

func TestSaveResult(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(saveResultSQL)).
		WithArgs("time", "3:45", 4, "unbroken thrusters", "wod-1", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveResult(context.Background(), "acc-1", "wod-1", models.WodResult{
		ResultType:   "time",
		ResultValue:  "3:45",
		Feeling:      4,
		AthleteNotes: "unbroken thrusters",
	})
	require.NoError(t, err)
}

func TestSaveResultValidation(t *testing.T) {
	store, _, _ := setupStore(t, nil)

	err := store.SaveResult(context.Background(), "acc-1", "wod-1", models.WodResult{
		ResultType: "pace", ResultValue: "4:00/km", Feeling: 3,
	})
	assert.Error(t, err, "unknown result types never reach the datastore")

	err = store.SaveResult(context.Background(), "acc-1", "wod-1", models.WodResult{
		ResultType: "time", ResultValue: "3:45", Feeling: 5,
	})
	assert.Error(t, err)
}

func TestSaveResultMissingWod(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(saveResultSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveResult(context.Background(), "acc-1", "wod-9", models.WodResult{
		ResultType: "rounds_reps", ResultValue: "17+4", Feeling: 2,
	})
	assert.ErrorIs(t, err, models.ErrWodNotFound)
}

func TestAttachFeedback(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(attachFeedbackSQL)).
		WithArgs("Great pacing today.", "wod-1", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AttachFeedback(context.Background(), "acc-1", "wod-1", "Great pacing today.")
	require.NoError(t, err)
}

func TestAttachFeedbackCrossAccountIsNotAuthorized(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(attachFeedbackSQL)).
		WithArgs("Nice work.", "wod-1", "acc-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT account_id FROM wods WHERE id = $1`)).
		WithArgs("wod-1").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow("acc-1"))

	err := store.AttachFeedback(context.Background(), "acc-2", "wod-1", "Nice work.")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
}

func TestAttachFeedbackMissingWod(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(attachFeedbackSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT account_id FROM wods WHERE id = $1`)).
		WithArgs("wod-9").
		WillReturnError(sql.ErrNoRows)

	err := store.AttachFeedback(context.Background(), "acc-1", "wod-9", "Nice work.")
	assert.ErrorIs(t, err, models.ErrWodNotFound)
}

func TestDeleteMissingWod(t *testing.T) {
	store, mock, _ := setupStore(t, nil)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM wods WHERE id = $1 AND account_id = $2`)).
		WithArgs("wod-9", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "acc-1", "wod-9")
	assert.ErrorIs(t, err, models.ErrWodNotFound)
}
