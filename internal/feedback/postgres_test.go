package feedback

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	return db, mock
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := setupMockDB(t)
	mock.ExpectPing()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	store, err := NewPostgresStore(nil)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO feedback").
		WithArgs("", "PT-2001", "CLOPIDOGREL", "CYP2C19", "*2/*17", "Intermediate Metabolizer",
			"Adjust Dosage", "Adjust Dosage", true, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	fb := &Feedback{
		PatientID:       "PT-2001",
		Drug:            "CLOPIDOGREL",
		Gene:            "CYP2C19",
		Diplotype:       "*2/*17",
		Phenotype:       "Intermediate Metabolizer",
		SuggestedRisk:   "Adjust Dosage",
		ClinicianRisk:   "Adjust Dosage",
		ClinicianAgreed: true,
	}

	err := store.Save(context.Background(), fb)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fb.ID)
	assert.False(t, fb.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "report_id", "patient_id", "drug", "gene", "diplotype", "phenotype",
		"suggested_risk", "clinician_risk", "clinician_agreed", "notes", "created_at", "updated_at",
	}).AddRow(int64(3), "", "PT-2002", "FLUOROURACIL", "DPYD", "*2A/*5", "Poor Metabolizer",
		"Toxic", "Toxic", true, "", now, now)

	mock.ExpectQuery("SELECT (.+) FROM feedback").
		WithArgs("FLUOROURACIL", "DPYD", "*2A/*5").
		WillReturnRows(rows)

	fb, err := store.Get(context.Background(), "FLUOROURACIL", "DPYD", "*2A/*5")
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, "Toxic", fb.ClinicianRisk)
	assert.True(t, fb.ClinicianAgreed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery("SELECT (.+) FROM feedback").
		WithArgs("WARFARIN", "CYP2C9", "*1/*3").
		WillReturnError(sql.ErrNoRows)

	fb, err := store.Get(context.Background(), "WARFARIN", "CYP2C9", "*1/*3")
	assert.NoError(t, err)
	assert.Nil(t, fb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "report_id", "patient_id", "drug", "gene", "diplotype", "phenotype",
		"suggested_risk", "clinician_risk", "clinician_agreed", "notes", "created_at", "updated_at",
	}).
		AddRow(int64(2), "", "PT-1", "CODEINE", "CYP2D6", "*1/*4", "Intermediate Metabolizer",
			"Adjust Dosage", "Adjust Dosage", true, "", now, now).
		AddRow(int64(1), "", "PT-2", "SIMVASTATIN", "SLCO1B1", "*1/*5", "Intermediate Metabolizer",
			"Adjust Dosage", "Safe", false, "tolerated full dose", now, now)

	mock.ExpectQuery("SELECT (.+) FROM feedback").
		WithArgs(10, 0).
		WillReturnRows(rows)

	list, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CODEINE", list[0].Drug)
	assert.Equal(t, "tolerated full dose", list[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM feedback").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.Close()

	mock.ExpectExec("DELETE FROM feedback WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), 5)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
