// Package storage persiste las imágenes de medidores de forma transitoria:
// cada imagen vive hasta su TTL y después se borra en segundo plano.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/hypernova-labs/metering-service/internal/database"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/sirupsen/logrus"
)

var dataURIPrefix = regexp.MustCompile(`^data:image/[a-zA-Z+]+;base64,`)

// acceptedMimeTypes son los tipos de imagen aceptados, verificados por
// magic bytes y no por la extensión declarada en el data-URI.
var acceptedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// ParsedImage representa una imagen decodificada de un data-URI
type ParsedImage struct {
	Data      []byte
	Extension string
	MimeType  string
}

// ParseDataURI decodifica un data-URI base64 y verifica por magic bytes que
// los bytes son de un tipo de imagen aceptado.
func ParseDataURI(image string) (*ParsedImage, error) {
	raw := dataURIPrefix.ReplaceAllString(image, "")

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, models.ErrInvalidImage
	}

	mtype := mimetype.Detect(data)
	if !acceptedMimeTypes[mtype.String()] {
		return nil, models.ErrInvalidImage
	}

	return &ParsedImage{
		Data:      data,
		Extension: strings.TrimPrefix(mtype.Extension(), "."),
		MimeType:  mtype.String(),
	}, nil
}

// ImageStore guarda imágenes en disco local o en object storage cuando está
// configurado, y agenda su borrado al vencer el TTL.
type ImageStore struct {
	basePath string
	baseURL  string
	bucket   string
	ttl      time.Duration
	objects  *database.ObjectStorageClient
	redis    *database.Redis
	logger   *logrus.Logger
}

// NewImageStore crea una nueva instancia del store de imágenes
func NewImageStore(cfg *config.Config, objects *database.ObjectStorageClient, redis *database.Redis, logger *logrus.Logger) (*ImageStore, error) {
	store := &ImageStore{
		basePath: cfg.Storage.Path,
		baseURL:  cfg.Server.BaseURL,
		bucket:   cfg.Storage.Bucket,
		ttl:      cfg.Storage.ImageTTL,
		objects:  objects,
		redis:    redis,
		logger:   logger,
	}

	if objects == nil {
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, fmt.Errorf("error creating upload directory: %w", err)
		}
	}

	return store, nil
}

// Save persiste la imagen bajo el uuid de la lectura y retorna su URL.
// La imagen queda agendada para borrado al vencer el TTL.
func (s *ImageStore) Save(ctx context.Context, img *ParsedImage, measureUUID uuid.UUID) (string, error) {
	fileName := measureUUID.String() + "." + img.Extension

	var url string
	if s.objects != nil {
		uploaded, err := s.objects.UploadImage(ctx, s.bucket, fileName, img.Data, img.MimeType)
		if err != nil {
			return "", err
		}
		url = uploaded
	} else {
		filePath := filepath.Join(s.basePath, fileName)
		if err := os.WriteFile(filePath, img.Data, 0o644); err != nil {
			return "", fmt.Errorf("error writing image file: %w", err)
		}
		url = s.baseURL + "/uploads/" + fileName
	}

	s.scheduleCleanup(ctx, fileName)

	return url, nil
}

// Remove borra una imagen del backend activo. Un archivo ya ausente no es error.
func (s *ImageStore) Remove(ctx context.Context, fileName string) error {
	if s.objects != nil {
		return s.objects.DeleteImage(ctx, s.bucket, fileName)
	}

	err := os.Remove(filepath.Join(s.basePath, fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing image file: %w", err)
	}

	return nil
}

// TTL retorna el tiempo de vida configurado de las imágenes
func (s *ImageStore) TTL() time.Duration {
	return s.ttl
}

// scheduleCleanup agenda el borrado del archivo. Con Redis la cola sobrevive
// reinicios; sin Redis cae a un timer en memoria, mejor esfuerzo.
func (s *ImageStore) scheduleCleanup(ctx context.Context, fileName string) {
	if s.redis != nil {
		if err := s.redis.ScheduleCleanup(ctx, fileName, time.Now().Add(s.ttl)); err == nil {
			return
		} else {
			s.logger.WithError(err).Warn("Could not enqueue image cleanup, falling back to in-process timer")
		}
	}

	time.AfterFunc(s.ttl, func() {
		if err := s.Remove(context.Background(), fileName); err != nil {
			s.logger.WithError(err).WithField("file", fileName).Warn("Error deleting expired image")
		}
	})
}
