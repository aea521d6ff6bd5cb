package workflows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/inngest/inngestgo"
	"github.com/sirupsen/logrus"
)

// EventImageStored es el evento emitido al persistir la imagen de una lectura
const EventImageStored = "metering/image.stored"

// InngestClient maneja la configuración y registro de workflows
type InngestClient struct {
	client inngestgo.Client
	logger *logrus.Logger
}

// NewInngestClient crea una nueva instancia del cliente
func NewInngestClient(cfg *config.Config, logger *logrus.Logger) (*InngestClient, error) {
	// Verificar que las credenciales estén configuradas
	if cfg.Inngest.EventKey == "" {
		return nil, fmt.Errorf("INNGEST_EVENT_KEY not configured")
	}

	if cfg.Inngest.SigningKey == "" {
		return nil, fmt.Errorf("INNGEST_SIGNING_KEY not configured")
	}

	client, err := inngestgo.NewClient(inngestgo.ClientOpts{
		EventKey:   &cfg.Inngest.EventKey,
		SigningKey: &cfg.Inngest.SigningKey,
		AppID:      cfg.Inngest.AppID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Inngest client: %w", err)
	}

	return &InngestClient{
		client: client,
		logger: logger,
	}, nil
}

// SendImageStored publica el evento de imagen persistida. El fallo no es
// crítico: el janitor de Redis sigue siendo la autoridad del borrado.
func (c *InngestClient) SendImageStored(ctx context.Context, fileName string) {
	_, err := c.client.Send(ctx, inngestgo.Event{
		Name: EventImageStored,
		Data: map[string]interface{}{
			"file_name": fileName,
		},
	})
	if err != nil {
		c.logger.WithError(err).WithField("file", fileName).Warn("Error sending image stored event")
	}
}

// Serve retorna el handler HTTP que ejecuta los workflows registrados
func (c *InngestClient) Serve() http.Handler {
	return c.client.Serve()
}

// GetClient retorna el cliente de Inngest
func (c *InngestClient) GetClient() inngestgo.Client {
	return c.client
}
