package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// uniqueViolation es el código de error de PostgreSQL para violaciones de
// índice único (la lectura duplicada del mes).
const uniqueViolation = "23505"

// MeasureRepository maneja las operaciones de base de datos para Measure
type MeasureRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewMeasureRepository crea una nueva instancia del repositorio
func NewMeasureRepository(db *DB, logger *logrus.Logger) *MeasureRepository {
	return &MeasureRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserta una nueva lectura. Una violación del índice único de mes
// se traduce a ErrDoubleReport.
func (r *MeasureRepository) Create(measure *models.Measure) error {
	query := `
		INSERT INTO measures (
			measure_uuid, customer_code, measure_type, measure_datetime,
			measure_value, image_url, has_confirmed, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecWithTimeout(query,
		measure.MeasureUUID, measure.CustomerCode, measure.MeasureType,
		measure.MeasureDatetime, measure.MeasureValue, measure.ImageURL,
		measure.HasConfirmed, measure.CreatedAt, measure.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrDoubleReport
		}
		return fmt.Errorf("error creating measure: %w", err)
	}

	return nil
}

// ExistsForMonth verifica si ya hay una lectura del cliente y tipo dentro
// del mes calendario de la fecha de referencia. El año sale de la propia
// fecha, no del reloj del servidor.
func (r *MeasureRepository) ExistsForMonth(customerCode string, measureType models.MeasureType, ref time.Time) (bool, error) {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM measures
			WHERE customer_code = $1
			  AND measure_type = $2
			  AND measure_datetime >= $3
			  AND measure_datetime < $4
		)
	`

	var exists bool
	err := r.db.QueryRowWithTimeout(query, customerCode, measureType, monthStart, nextMonth).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking existing measure: %w", err)
	}

	return exists, nil
}

// GetByUUID obtiene una lectura por su identificador
func (r *MeasureRepository) GetByUUID(id uuid.UUID) (*models.Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_type, measure_datetime,
			   measure_value, image_url, has_confirmed, created_at, updated_at
		FROM measures
		WHERE measure_uuid = $1
	`

	var measure models.Measure
	err := r.db.QueryRowWithTimeout(query, id).Scan(
		&measure.MeasureUUID, &measure.CustomerCode, &measure.MeasureType,
		&measure.MeasureDatetime, &measure.MeasureValue, &measure.ImageURL,
		&measure.HasConfirmed, &measure.CreatedAt, &measure.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrMeasureNotFound
		}
		return nil, fmt.Errorf("error querying measure: %w", err)
	}

	return &measure, nil
}

// Confirm marca una lectura como confirmada con el valor corregido. El
// predicado has_confirmed = false garantiza la transición única aunque dos
// confirmaciones lleguen a la vez.
func (r *MeasureRepository) Confirm(id uuid.UUID, confirmedValue int64) error {
	query := `
		UPDATE measures
		SET measure_value = $1, has_confirmed = true, updated_at = $2
		WHERE measure_uuid = $3 AND has_confirmed = false
	`

	result, err := r.db.ExecWithTimeout(query, confirmedValue, time.Now(), id)
	if err != nil {
		return fmt.Errorf("error confirming measure: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrMeasureAlreadyConfirmed
	}

	return nil
}

// ListByCustomer obtiene todas las lecturas de un cliente, opcionalmente
// filtradas por tipo de medición. Sin paginación.
func (r *MeasureRepository) ListByCustomer(customerCode string, measureType *models.MeasureType) ([]models.Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_type, measure_datetime,
			   measure_value, image_url, has_confirmed, created_at, updated_at
		FROM measures
		WHERE customer_code = $1
	`
	args := []interface{}{customerCode}

	if measureType != nil {
		query += " AND measure_type = $2"
		args = append(args, *measureType)
	}

	query += " ORDER BY measure_datetime"

	rows, err := r.db.QueryWithTimeout(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying measures: %w", err)
	}
	defer rows.Close()

	var measures []models.Measure
	for rows.Next() {
		var measure models.Measure
		err := rows.Scan(
			&measure.MeasureUUID, &measure.CustomerCode, &measure.MeasureType,
			&measure.MeasureDatetime, &measure.MeasureValue, &measure.ImageURL,
			&measure.HasConfirmed, &measure.CreatedAt, &measure.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning measure: %w", err)
		}
		measures = append(measures, measure)
	}

	return measures, nil
}
