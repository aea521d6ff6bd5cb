// Package vision extrae la lectura numérica de una foto de medidor usando
// un modelo de visión alojado.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// meterPrompt es la instrucción fija enviada junto con la imagen
const meterPrompt = "You manage individual water and gas consumption readings. " +
	"Analyze the meter in the image and answer with only the number shown on the meter."

var digitRun = regexp.MustCompile(`\d+`)

// Reader es la capacidad de inferencia inyectada en el servicio de lecturas
type Reader interface {
	ReadMeter(ctx context.Context, imageData []byte, mimeType string) (int64, error)
}

// Client implementa Reader contra la API de chat completions
type Client struct {
	api    openai.Client
	model  string
	logger *logrus.Logger
}

// NewClient crea una nueva instancia del cliente de visión
func NewClient(cfg *config.VisionConfig, logger *logrus.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:    openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}
}

// ReadMeter envía la imagen al modelo y parsea la lectura de la respuesta
func (c *Client) ReadMeter(ctx context.Context, imageData []byte, mimeType string) (int64, error) {
	imageURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(imageData)

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(meterPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("error calling vision model: %w", err)
	}

	if len(completion.Choices) == 0 {
		return 0, models.ErrEmptyReading
	}

	text := completion.Choices[0].Message.Content
	value, err := extractReading(text)
	if err != nil {
		c.logger.WithField("output", text).Warn("Vision model output had no usable reading")
		return 0, err
	}

	return value, nil
}

// extractReading toma la primera corrida de dígitos de la respuesta libre
// del modelo, descarta ceros a la izquierda y la parsea como entero.
func extractReading(text string) (int64, error) {
	match := digitRun.FindString(text)
	if match == "" {
		return 0, models.ErrEmptyReading
	}

	cleaned := strings.TrimLeft(match, "0")
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, models.ErrEmptyReading
	}

	return value, nil
}
