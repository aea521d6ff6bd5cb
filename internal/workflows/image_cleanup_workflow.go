package workflows

import (
	"context"
	"fmt"

	"github.com/hypernova-labs/metering-service/internal/storage"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/sirupsen/logrus"
)

// ImageStoredData representa el payload del evento de imagen persistida
type ImageStoredData struct {
	FileName string `json:"file_name"`
}

// RegisterWorkflows registra el workflow de limpieza de imágenes: duerme el
// TTL del lado de Inngest (sobrevive reinicios del proceso) y borra el archivo.
func (c *InngestClient) RegisterWorkflows(store *storage.ImageStore) error {
	c.logger.Info("Registering workflows with Inngest")

	_, err := inngestgo.CreateFunction(
		c.client,
		inngestgo.FunctionOpts{
			ID:   "image-cleanup",
			Name: "Expired meter image cleanup",
		},
		inngestgo.EventTrigger(EventImageStored, nil),
		func(ctx context.Context, input inngestgo.Input[ImageStoredData]) (any, error) {
			step.Sleep(ctx, "wait-image-ttl", store.TTL())

			fileName := input.Event.Data.FileName
			if err := store.Remove(ctx, fileName); err != nil {
				c.logger.WithError(err).WithField("file", fileName).Warn("Error deleting expired image")
				return nil, err
			}

			c.logger.WithFields(logrus.Fields{
				"file": fileName,
			}).Info("Expired meter image deleted")

			return nil, nil
		},
	)
	if err != nil {
		return fmt.Errorf("error registering image cleanup workflow: %w", err)
	}

	return nil
}
