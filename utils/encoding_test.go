package utils

import (
	"adstudio/apperrors"
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestEncodeAssetPreservesBytes(t *testing.T) {
	data := append([]byte(nil), pngHeader...)
	data = append(data, 0x00, 0xff, 0x10)

	asset, err := EncodeAsset(bytes.NewReader(data), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, data, asset.Data)
	assert.Equal(t, "image/jpeg", asset.MimeType, "declared type wins")
}

func TestEncodeAssetSniffsGenericType(t *testing.T) {
	tests := []struct {
		name     string
		declared string
	}{
		{"No declared type", ""},
		{"Octet stream", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := EncodeAsset(bytes.NewReader(pngHeader), tt.declared)
			require.NoError(t, err)
			assert.Equal(t, "image/png", asset.MimeType)
		})
	}
}

func TestEncodeAssetStripsParameters(t *testing.T) {
	asset, err := EncodeAsset(bytes.NewReader(pngHeader), "Image/PNG; foo=bar")
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.MimeType)
}

func TestEncodeAssetReadError(t *testing.T) {
	_, err := EncodeAsset(iotest.ErrReader(errors.New("disk gone")), "image/png")
	require.Error(t, err)
	assert.True(t, apperrors.IsReadError(err))
}

func TestEncodeAssetEmpty(t *testing.T) {
	_, err := EncodeAsset(bytes.NewReader(nil), "image/png")
	require.Error(t, err)
	assert.True(t, apperrors.IsReadError(err))
}

func TestEncodedAssetBase64(t *testing.T) {
	asset, err := EncodeAsset(bytes.NewReader([]byte("hi")), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "aGk=", asset.Base64())
}
