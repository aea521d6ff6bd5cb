package models

import "errors"

// ErrorCode representa el código de error de la API
type ErrorCode string

const (
	ErrorCodeInvalidData      ErrorCode = "INVALID_DATA"
	ErrorCodeInvalidType      ErrorCode = "INVALID_TYPE"
	ErrorCodeDoubleReport     ErrorCode = "DOUBLE_REPORT"
	ErrorCodeMeasureNotFound  ErrorCode = "MEASURE_NOT_FOUND"
	ErrorCodeMeasuresNotFound ErrorCode = "MEASURES_NOT_FOUND"
	ErrorCodeAlreadyConfirmed ErrorCode = "MEASURE_ALREADY_CONFIRMED"
	ErrorCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// Errores de negocio consumidos con errors.Is en los handlers
var (
	ErrDoubleReport            = errors.New("measure already reported for this month")
	ErrMeasureNotFound         = errors.New("measure not found")
	ErrMeasureAlreadyConfirmed = errors.New("measure already confirmed")
	ErrMeasuresNotFound        = errors.New("no measures found")
	ErrInvalidImage            = errors.New("image is not a supported type")
	ErrEmptyReading            = errors.New("no reading found in model output")
)

// ErrorResponse representa la respuesta de error estandarizada
type ErrorResponse struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// NewErrorResponse crea una nueva respuesta de error
func NewErrorResponse(code ErrorCode, description string) ErrorResponse {
	return ErrorResponse{
		ErrorCode:        string(code),
		ErrorDescription: description,
	}
}

// NewInvalidDataError crea un error de validación
func NewInvalidDataError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeInvalidData, description)
}

// NewInvalidTypeError crea un error de tipo de medición no permitido
func NewInvalidTypeError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeInvalidType, description)
}

// NewDoubleReportError crea un error de lectura duplicada en el mes
func NewDoubleReportError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeDoubleReport, description)
}

// NewMeasureNotFoundError crea un error de lectura no encontrada
func NewMeasureNotFoundError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeMeasureNotFound, description)
}

// NewMeasuresNotFoundError crea un error de listado vacío
func NewMeasuresNotFoundError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeMeasuresNotFound, description)
}

// NewAlreadyConfirmedError crea un error de lectura ya confirmada
func NewAlreadyConfirmedError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeAlreadyConfirmed, description)
}

// NewInternalError crea un error interno del servidor
func NewInternalError(description string) ErrorResponse {
	return NewErrorResponse(ErrorCodeInternal, description)
}
