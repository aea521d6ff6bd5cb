package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*MeasureRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	repo := NewMeasureRepository(&DB{mockDB}, logrus.New())
	return repo, mock
}

func sampleMeasure() *models.Measure {
	now := time.Now()
	return &models.Measure{
		MeasureUUID:     uuid.New(),
		CustomerCode:    "2523",
		MeasureType:     models.MeasureTypeGas,
		MeasureDatetime: time.Date(2024, time.August, 28, 18, 0, 0, 0, time.UTC),
		MeasureValue:    4210,
		ImageURL:        "http://localhost:8080/uploads/test.png",
		HasConfirmed:    false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func measureColumns() []string {
	return []string{
		"measure_uuid", "customer_code", "measure_type", "measure_datetime",
		"measure_value", "image_url", "has_confirmed", "created_at", "updated_at",
	}
}

func measureRow(m *models.Measure) *sqlmock.Rows {
	return sqlmock.NewRows(measureColumns()).AddRow(
		m.MeasureUUID, m.CustomerCode, string(m.MeasureType), m.MeasureDatetime,
		m.MeasureValue, m.ImageURL, m.HasConfirmed, m.CreatedAt, m.UpdatedAt,
	)
}

func TestCreateMeasure(t *testing.T) {
	repo, mock := newMockRepository(t)
	measure := sampleMeasure()

	mock.ExpectExec("INSERT INTO measures").
		WithArgs(
			measure.MeasureUUID, measure.CustomerCode, measure.MeasureType,
			measure.MeasureDatetime, measure.MeasureValue, measure.ImageURL,
			measure.HasConfirmed, measure.CreatedAt, measure.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(measure))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMeasureUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO measures").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(sampleMeasure())
	assert.ErrorIs(t, err, models.ErrDoubleReport)
}

func TestExistsForMonth(t *testing.T) {
	repo, mock := newMockRepository(t)

	// La ventana sale del año y mes de la propia lectura
	ref := time.Date(2023, time.December, 15, 10, 0, 0, 0, time.UTC)
	monthStart := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("2523", models.MeasureTypeWater, monthStart, nextMonth).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForMonth("2523", models.MeasureTypeWater, ref)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsForMonthNoMatch(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsForMonth("2523", models.MeasureTypeGas, time.Now())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetByUUID(t *testing.T) {
	repo, mock := newMockRepository(t)
	measure := sampleMeasure()

	mock.ExpectQuery("SELECT (.+) FROM measures").
		WithArgs(measure.MeasureUUID).
		WillReturnRows(measureRow(measure))

	found, err := repo.GetByUUID(measure.MeasureUUID)
	require.NoError(t, err)
	assert.Equal(t, measure.MeasureUUID, found.MeasureUUID)
	assert.Equal(t, measure.CustomerCode, found.CustomerCode)
	assert.Equal(t, measure.MeasureValue, found.MeasureValue)
}

func TestGetByUUIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM measures").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUUID(uuid.New())
	assert.ErrorIs(t, err, models.ErrMeasureNotFound)
}

func TestConfirm(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE measures").
		WithArgs(int64(5000), sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Confirm(id, 5000))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAlreadyConfirmed(t *testing.T) {
	repo, mock := newMockRepository(t)

	// Cero filas afectadas: otra confirmación ganó la carrera
	mock.ExpectExec("UPDATE measures").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Confirm(uuid.New(), 5000)
	assert.ErrorIs(t, err, models.ErrMeasureAlreadyConfirmed)
}

func TestListByCustomer(t *testing.T) {
	repo, mock := newMockRepository(t)
	first := sampleMeasure()
	second := sampleMeasure()
	second.MeasureType = models.MeasureTypeWater

	rows := measureRow(first).AddRow(
		second.MeasureUUID, second.CustomerCode, string(second.MeasureType), second.MeasureDatetime,
		second.MeasureValue, second.ImageURL, second.HasConfirmed, second.CreatedAt, second.UpdatedAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM measures").
		WithArgs("2523").
		WillReturnRows(rows)

	measures, err := repo.ListByCustomer("2523", nil)
	require.NoError(t, err)
	assert.Len(t, measures, 2)
}

func TestListByCustomerFilteredByType(t *testing.T) {
	repo, mock := newMockRepository(t)
	measure := sampleMeasure()

	mock.ExpectQuery("SELECT (.+) FROM measures").
		WithArgs("2523", models.MeasureTypeGas).
		WillReturnRows(measureRow(measure))

	measureType := models.MeasureTypeGas
	measures, err := repo.ListByCustomer("2523", &measureType)
	require.NoError(t, err)
	assert.Len(t, measures, 1)
	assert.Equal(t, models.MeasureTypeGas, measures[0].MeasureType)
}

func TestListByCustomerEmpty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM measures").
		WillReturnRows(sqlmock.NewRows(measureColumns()))

	measures, err := repo.ListByCustomer("unknown", nil)
	require.NoError(t, err)
	assert.Empty(t, measures)
}
