package utils

import (
	"adstudio/apperrors"
	"adstudio/models"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const genericMimeType = "application/octet-stream"

// EncodeAsset reads r to completion and tags the bytes with a media type.
// declaredType wins unless it is empty or generic, in which case the type is sniffed from the content.
func EncodeAsset(r io.Reader, declaredType string) (*models.EncodedAsset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewReadError("failed to read asset", err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewReadError("asset is empty", nil)
	}

	mimeType := normalizeMimeType(declaredType)
	if mimeType == "" || mimeType == genericMimeType {
		mimeType = normalizeMimeType(mimetype.Detect(data).String())
	}

	return &models.EncodedAsset{
		Data:     data,
		MimeType: mimeType,
	}, nil
}

// EncodeFileHeader encodes an uploaded multipart file
func EncodeFileHeader(fh *multipart.FileHeader) (*models.EncodedAsset, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewReadError(fmt.Sprintf("failed to open upload %s", fh.Filename), err)
	}
	defer f.Close()

	asset, err := EncodeAsset(f, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperrors.Wrap(err, fh.Filename, apperrors.ErrorTypeRead)
	}
	return asset, nil
}

// normalizeMimeType drops parameters such as "; charset=binary"
func normalizeMimeType(t string) string {
	if idx := strings.Index(t, ";"); idx >= 0 {
		t = t[:idx]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
