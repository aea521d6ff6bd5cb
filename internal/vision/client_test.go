package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReading(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   int64
		err    error
	}{
		{name: "plain number", output: "1234", want: 1234},
		{name: "number inside text", output: "The meter shows 567 cubic meters", want: 567},
		{name: "leading zeros stripped", output: "000789", want: 789},
		{name: "first digit run wins", output: "12 and then 34", want: 12},
		{name: "no digits", output: "cannot read the meter", err: models.ErrEmptyReading},
		{name: "empty output", output: "", err: models.ErrEmptyReading},
		{name: "all zeros", output: "0000", err: models.ErrEmptyReading},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value, err := extractReading(tc.output)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, value)
		})
	}
}

func TestReadMeter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verificar que el body lleva el modelo configurado y la imagen
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"choices": [
				{
					"index": 0,
					"message": {"role": "assistant", "content": "The meter reads 004210."},
					"finish_reason": "stop"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(&config.VisionConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, logrus.New())

	value, err := client.ReadMeter(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, int64(4210), value)
}

func TestReadMeterAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "boom"}}`))
	}))
	defer server.Close()

	client := NewClient(&config.VisionConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, logrus.New())

	_, err := client.ReadMeter(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	assert.Error(t, err)
}

func TestReadMeterUnreadableOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"choices": [
				{
					"index": 0,
					"message": {"role": "assistant", "content": "I cannot see a meter in this image."},
					"finish_reason": "stop"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(&config.VisionConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, logrus.New())

	_, err := client.ReadMeter(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	assert.ErrorIs(t, err, models.ErrEmptyReading)
}
