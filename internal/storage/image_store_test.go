package storage

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00")
	bmpBytes  = []byte{'B', 'M', 0x1E, 0x00, 0x00, 0x00}
)

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestParseDataURIAcceptedTypes(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		mime string
		ext  string
	}{
		{name: "png", uri: dataURI("image/png", pngBytes), mime: "image/png", ext: "png"},
		{name: "jpeg", uri: dataURI("image/jpeg", jpegBytes), mime: "image/jpeg", ext: "jpg"},
		{name: "gif", uri: dataURI("image/gif", gifBytes), mime: "image/gif", ext: "gif"},
		{name: "bmp", uri: dataURI("image/bmp", bmpBytes), mime: "image/bmp", ext: "bmp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img, err := ParseDataURI(tc.uri)
			require.NoError(t, err)
			assert.Equal(t, tc.mime, img.MimeType)
			assert.Equal(t, tc.ext, img.Extension)
			assert.NotEmpty(t, img.Data)
		})
	}
}

func TestParseDataURIRejectsNonImages(t *testing.T) {
	// El sniffing va por magic bytes: el prefijo declarado no alcanza
	textAsPNG := dataURI("image/png", []byte("definitely not an image"))
	_, err := ParseDataURI(textAsPNG)
	assert.ErrorIs(t, err, models.ErrInvalidImage)
}

func TestParseDataURIRejectsBadBase64(t *testing.T) {
	_, err := ParseDataURI("data:image/png;base64,!!!not-base64!!!")
	assert.ErrorIs(t, err, models.ErrInvalidImage)
}

func newLocalStore(t *testing.T) *ImageStore {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage.Path = t.TempDir()
	cfg.Storage.ImageTTL = time.Hour
	cfg.Server.BaseURL = "http://localhost:8080"

	store, err := NewImageStore(cfg, nil, nil, logrus.New())
	require.NoError(t, err)

	return store
}

func TestSaveWritesFileAndBuildsURL(t *testing.T) {
	store := newLocalStore(t)

	img, err := ParseDataURI(dataURI("image/png", pngBytes))
	require.NoError(t, err)

	measureUUID := uuid.New()
	url, err := store.Save(context.Background(), img, measureUUID)
	require.NoError(t, err)

	fileName := measureUUID.String() + ".png"
	assert.Equal(t, "http://localhost:8080/uploads/"+fileName, url)

	written, err := os.ReadFile(filepath.Join(store.basePath, fileName))
	require.NoError(t, err)
	assert.Equal(t, img.Data, written)
}

func TestRemoveDeletesFile(t *testing.T) {
	store := newLocalStore(t)

	img, err := ParseDataURI(dataURI("image/jpeg", jpegBytes))
	require.NoError(t, err)

	measureUUID := uuid.New()
	_, err = store.Save(context.Background(), img, measureUUID)
	require.NoError(t, err)

	fileName := measureUUID.String() + ".jpg"
	require.NoError(t, store.Remove(context.Background(), fileName))

	_, err = os.Stat(filepath.Join(store.basePath, fileName))
	assert.True(t, os.IsNotExist(err))

	// Borrar un archivo ya ausente no es error
	assert.NoError(t, store.Remove(context.Background(), fileName))
}
