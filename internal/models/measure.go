package models

import (
	"time"

	"github.com/google/uuid"
)

// MeasureType representa el tipo de medición
type MeasureType string

const (
	MeasureTypeWater MeasureType = "WATER"
	MeasureTypeGas   MeasureType = "GAS"
)

// IsValid retorna true si el tipo de medición es soportado
func (t MeasureType) IsValid() bool {
	return t == MeasureTypeWater || t == MeasureTypeGas
}

// ParseMeasureType convierte un string en MeasureType
func ParseMeasureType(value string) (MeasureType, bool) {
	t := MeasureType(value)
	return t, t.IsValid()
}

// Measure representa una lectura de medidor de agua o gas
type Measure struct {
	MeasureUUID     uuid.UUID   `json:"measure_uuid"`
	CustomerCode    string      `json:"customer_code"`
	MeasureType     MeasureType `json:"measure_type"`
	MeasureDatetime time.Time   `json:"measure_datetime"`
	MeasureValue    int64       `json:"measure_value"`
	ImageURL        string      `json:"image_url"`
	HasConfirmed    bool        `json:"has_confirmed"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// UploadRequest representa la petición de carga de una lectura
type UploadRequest struct {
	Image           string      `json:"image"`
	CustomerCode    string      `json:"customer_code"`
	MeasureDatetime time.Time   `json:"measure_datetime"`
	MeasureType     MeasureType `json:"measure_type"`
}

// UploadResponse representa la respuesta de una carga exitosa
type UploadResponse struct {
	ImageURL     string `json:"image_url"`
	MeasureValue int64  `json:"measure_value"`
	MeasureUUID  string `json:"measure_uuid"`
}

// ConfirmRequest representa la petición de confirmación de una lectura
type ConfirmRequest struct {
	MeasureUUID    uuid.UUID `json:"measure_uuid"`
	ConfirmedValue int64     `json:"confirmed_value"`
}

// ConfirmResponse representa la respuesta de una confirmación exitosa
type ConfirmResponse struct {
	Success bool `json:"success"`
}

// MeasureSummary representa la proyección de una lectura en el listado
type MeasureSummary struct {
	MeasureUUID     string      `json:"measure_uuid"`
	MeasureDatetime time.Time   `json:"measure_datetime"`
	MeasureType     MeasureType `json:"measure_type"`
	HasConfirmed    bool        `json:"has_confirmed"`
	ImageURL        string      `json:"image_url"`
}

// ListResponse representa la respuesta del listado de lecturas de un cliente
type ListResponse struct {
	CustomerCode string           `json:"customer_code"`
	Measures     []MeasureSummary `json:"measures"`
}

// DatetimeLayouts son los formatos aceptados para measure_datetime
var DatetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseMeasureDatetime parsea un measure_datetime en los formatos aceptados
func ParseMeasureDatetime(value string) (time.Time, bool) {
	for _, layout := range DatetimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
