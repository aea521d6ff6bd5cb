package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/hypernova-labs/metering-service/internal/validation"
	"github.com/sirupsen/logrus"
)

// MeasureService es la capa de negocio consumida por los handlers
type MeasureService interface {
	Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	Confirm(ctx context.Context, req *models.ConfirmRequest) (*models.ConfirmResponse, error)
	ListByCustomer(ctx context.Context, customerCode string, measureType *models.MeasureType) (*models.ListResponse, error)
}

// API maneja todos los endpoints de la API
type API struct {
	measureService MeasureService
	logger         *logrus.Logger
}

// NewAPI crea una nueva instancia de la API
func NewAPI(measureService MeasureService, logger *logrus.Logger) *API {
	return &API{
		measureService: measureService,
		logger:         logger,
	}
}

var base64ImagePattern = regexp.MustCompile(`^data:image/(png|jpg|jpeg|gif|bmp|webp);base64,([A-Za-z0-9+/]+={0,2})$`)

// uploadRules valida el body de POST /upload, en orden de declaración
var uploadRules = []validation.Rule{
	{
		Field:    "image",
		Required: true,
		Type:     validation.TypeString,
		Pattern:  base64ImagePattern,
		Message:  "The image must be a valid base64 data-URI",
	},
	{
		Field:    "customer_code",
		Required: true,
		Type:     validation.TypeString,
	},
	{
		Field:    "measure_datetime",
		Required: true,
		Type:     validation.TypeString,
		Custom: func(value interface{}) bool {
			str, ok := value.(string)
			if !ok {
				return false
			}
			_, ok = models.ParseMeasureDatetime(str)
			return ok
		},
		Message: "The measure_datetime must be a valid date",
	},
	{
		Field:    "measure_type",
		Required: true,
		Type:     validation.TypeString,
		Custom: func(value interface{}) bool {
			str, ok := value.(string)
			if !ok {
				return false
			}
			_, ok = models.ParseMeasureType(str)
			return ok
		},
		Message: "The measure_type must be WATER or GAS",
	},
}

// confirmRules valida el body de PATCH /confirm
var confirmRules = []validation.Rule{
	{
		Field:    "measure_uuid",
		Required: true,
		Type:     validation.TypeString,
		Custom: func(value interface{}) bool {
			str, ok := value.(string)
			if !ok {
				return false
			}
			_, err := uuid.Parse(str)
			return err == nil
		},
		Message: "The measure_uuid must be a valid UUID",
	},
	{
		Field:    "confirmed_value",
		Required: true,
		Type:     validation.TypeNumber,
		Custom: func(value interface{}) bool {
			// Las lecturas son enteras: un decimal se rechaza, no se trunca
			num, ok := value.(float64)
			return ok && num == math.Trunc(num)
		},
		Message: "The confirmed_value must be an integer",
	},
}

// listRules valida los parámetros de GET /:customer_code/list
var listRules = []validation.Rule{
	{
		Field:    "customer_code",
		Required: true,
		Type:     validation.TypeString,
	},
	{
		Field: "measure_type",
		Custom: func(value interface{}) bool {
			if value == nil {
				return true
			}
			str, ok := value.(string)
			if !ok {
				return false
			}
			_, ok = models.ParseMeasureType(str)
			return ok
		},
		Message: "Measure type not allowed",
	},
}

// Upload procesa la carga de una nueva lectura de medidor
func (api *API) Upload(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, models.NewInvalidDataError("Invalid request body"))
		return
	}

	if v := validation.Validate(body, uploadRules); v != nil {
		c.JSON(http.StatusBadRequest, models.NewInvalidDataError(v.Message))
		return
	}

	// Los casts son seguros: las reglas ya verificaron tipo y formato
	datetime, _ := models.ParseMeasureDatetime(body["measure_datetime"].(string))
	measureType, _ := models.ParseMeasureType(body["measure_type"].(string))

	req := &models.UploadRequest{
		Image:           body["image"].(string),
		CustomerCode:    body["customer_code"].(string),
		MeasureDatetime: datetime,
		MeasureType:     measureType,
	}

	response, err := api.measureService.Upload(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDoubleReport):
			c.JSON(http.StatusConflict, models.NewDoubleReportError("Monthly reading already recorded"))
		case errors.Is(err, models.ErrInvalidImage):
			c.JSON(http.StatusBadRequest, models.NewInvalidDataError("The image must be a valid base64 data-URI"))
		default:
			api.logger.WithError(err).Error("Error processing measure upload")
			c.JSON(http.StatusInternalServerError, models.NewInternalError("Error processing the image"))
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// Confirm acepta o corrige el valor de una lectura existente
func (api *API) Confirm(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, models.NewInvalidDataError("Invalid request body"))
		return
	}

	if v := validation.Validate(body, confirmRules); v != nil {
		c.JSON(http.StatusBadRequest, models.NewInvalidDataError(v.Message))
		return
	}

	measureUUID, _ := uuid.Parse(body["measure_uuid"].(string))

	req := &models.ConfirmRequest{
		MeasureUUID:    measureUUID,
		ConfirmedValue: int64(body["confirmed_value"].(float64)),
	}

	response, err := api.measureService.Confirm(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMeasureNotFound):
			c.JSON(http.StatusNotFound, models.NewMeasureNotFoundError("Reading not found"))
		case errors.Is(err, models.ErrMeasureAlreadyConfirmed):
			c.JSON(http.StatusConflict, models.NewAlreadyConfirmedError("Reading already confirmed"))
		default:
			api.logger.WithError(err).Error("Error confirming measure")
			c.JSON(http.StatusInternalServerError, models.NewInternalError("Error processing the reading confirmation"))
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListByCustomer retorna las lecturas de un cliente
func (api *API) ListByCustomer(c *gin.Context) {
	customerCode := c.Param("customer_code")

	fields := map[string]interface{}{
		"customer_code": customerCode,
	}
	// Un measure_type vacío cuenta como ausente, igual que omitirlo
	if measureType := c.Query("measure_type"); measureType != "" {
		fields["measure_type"] = measureType
	}

	if v := validation.Validate(fields, listRules); v != nil {
		// El campo violado distingue INVALID_TYPE de INVALID_DATA
		if v.Field == "measure_type" {
			c.JSON(http.StatusBadRequest, models.NewInvalidTypeError(v.Message))
		} else {
			c.JSON(http.StatusBadRequest, models.NewInvalidDataError(v.Message))
		}
		return
	}

	var measureType *models.MeasureType
	if raw, present := fields["measure_type"]; present {
		parsed, _ := models.ParseMeasureType(raw.(string))
		measureType = &parsed
	}

	response, err := api.measureService.ListByCustomer(c.Request.Context(), customerCode, measureType)
	if err != nil {
		if errors.Is(err, models.ErrMeasuresNotFound) {
			c.JSON(http.StatusNotFound, models.NewMeasuresNotFoundError("No readings found"))
			return
		}
		api.logger.WithError(err).Error("Error listing measures")
		c.JSON(http.StatusInternalServerError, models.NewInternalError("Error retrieving the readings"))
		return
	}

	c.JSON(http.StatusOK, response)
}
