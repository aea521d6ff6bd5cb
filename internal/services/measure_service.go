package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/metering-service/internal/database"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/hypernova-labs/metering-service/internal/storage"
	"github.com/hypernova-labs/metering-service/internal/vision"
	"github.com/hypernova-labs/metering-service/internal/workflows"
	"github.com/sirupsen/logrus"
)

// MeasureService maneja la lógica de negocio de las lecturas de medidores
type MeasureService struct {
	measureRepo   *database.MeasureRepository
	visionClient  vision.Reader
	imageStore    *storage.ImageStore
	inngestClient *workflows.InngestClient
	logger        *logrus.Logger
}

// NewMeasureService crea una nueva instancia del servicio
func NewMeasureService(db *database.DB, visionClient vision.Reader, imageStore *storage.ImageStore, inngestClient *workflows.InngestClient, logger *logrus.Logger) *MeasureService {
	return &MeasureService{
		measureRepo:   database.NewMeasureRepository(db, logger),
		visionClient:  visionClient,
		imageStore:    imageStore,
		inngestClient: inngestClient,
		logger:        logger,
	}
}

// Upload procesa la carga de una lectura: chequeo de duplicado del mes,
// decodificación y sniffing de la imagen (antes de llamar al modelo),
// inferencia, persistencia de imagen y registro.
func (s *MeasureService) Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	exists, err := s.measureRepo.ExistsForMonth(req.CustomerCode, req.MeasureType, req.MeasureDatetime)
	if err != nil {
		return nil, fmt.Errorf("error checking existing measure: %w", err)
	}
	if exists {
		return nil, models.ErrDoubleReport
	}

	// Validar los bytes de la imagen antes de gastar una llamada al modelo
	img, err := storage.ParseDataURI(req.Image)
	if err != nil {
		return nil, err
	}

	measureValue, err := s.visionClient.ReadMeter(ctx, img.Data, img.MimeType)
	if err != nil {
		return nil, fmt.Errorf("error reading meter image: %w", err)
	}

	measureUUID := uuid.New()

	imageURL, err := s.imageStore.Save(ctx, img, measureUUID)
	if err != nil {
		return nil, fmt.Errorf("error storing meter image: %w", err)
	}

	now := time.Now()
	measure := &models.Measure{
		MeasureUUID:     measureUUID,
		CustomerCode:    req.CustomerCode,
		MeasureType:     req.MeasureType,
		MeasureDatetime: req.MeasureDatetime,
		MeasureValue:    measureValue,
		ImageURL:        imageURL,
		HasConfirmed:    false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// El índice único de mes convierte la carrera check-then-insert en un
	// ErrDoubleReport; la imagen huérfana la recoge el janitor al vencer su TTL.
	if err := s.measureRepo.Create(measure); err != nil {
		return nil, err
	}

	if s.inngestClient != nil {
		s.inngestClient.SendImageStored(ctx, measureUUID.String()+"."+img.Extension)
	}

	s.logger.WithFields(logrus.Fields{
		"measure_uuid":  measureUUID,
		"customer_code": req.CustomerCode,
		"measure_type":  req.MeasureType,
		"measure_value": measureValue,
	}).Info("Measure uploaded")

	return &models.UploadResponse{
		ImageURL:     imageURL,
		MeasureValue: measureValue,
		MeasureUUID:  measureUUID.String(),
	}, nil
}

// Confirm acepta o corrige el valor inferido de una lectura, una sola vez
func (s *MeasureService) Confirm(ctx context.Context, req *models.ConfirmRequest) (*models.ConfirmResponse, error) {
	measure, err := s.measureRepo.GetByUUID(req.MeasureUUID)
	if err != nil {
		return nil, err
	}

	if measure.HasConfirmed {
		return nil, models.ErrMeasureAlreadyConfirmed
	}

	// El update lleva has_confirmed = false en el predicado, así que una
	// confirmación concurrente que ganó la carrera también termina en 409
	if err := s.measureRepo.Confirm(req.MeasureUUID, req.ConfirmedValue); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"measure_uuid":    req.MeasureUUID,
		"confirmed_value": req.ConfirmedValue,
	}).Info("Measure confirmed")

	return &models.ConfirmResponse{Success: true}, nil
}

// ListByCustomer retorna las lecturas de un cliente, opcionalmente
// filtradas por tipo de medición
func (s *MeasureService) ListByCustomer(ctx context.Context, customerCode string, measureType *models.MeasureType) (*models.ListResponse, error) {
	measures, err := s.measureRepo.ListByCustomer(customerCode, measureType)
	if err != nil {
		return nil, fmt.Errorf("error listing measures: %w", err)
	}

	if len(measures) == 0 {
		return nil, models.ErrMeasuresNotFound
	}

	summaries := make([]models.MeasureSummary, len(measures))
	for i, measure := range measures {
		summaries[i] = models.MeasureSummary{
			MeasureUUID:     measure.MeasureUUID.String(),
			MeasureDatetime: measure.MeasureDatetime,
			MeasureType:     measure.MeasureType,
			HasConfirmed:    measure.HasConfirmed,
			ImageURL:        measure.ImageURL,
		}
	}

	return &models.ListResponse{
		CustomerCode: customerCode,
		Measures:     summaries,
	}, nil
}
