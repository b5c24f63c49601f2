// Package media converts between uploaded bytes, base64 payloads and data URLs.
package media

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/models"
)

// MaxUploadSize limits a single uploaded file.
const MaxUploadSize = 10 << 20

// EncodeDataURL returns data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a base64 data URL into its MIME type and decoded bytes.
func ParseDataURL(s string) (string, []byte, error) {
	mimeType, payload, err := split(s)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, apperrors.Validation("dataUrl", "invalid base64 payload: %v", err)
	}
	return mimeType, data, nil
}

// Base64Payload returns the base64 part of a data URL without decoding it.
func Base64Payload(dataURL string) (string, error) {
	_, payload, err := split(dataURL)
	return payload, err
}

// MIMEOf returns the MIME type declared by a data URL.
func MIMEOf(dataURL string) (string, error) {
	mimeType, _, err := split(dataURL)
	return mimeType, err
}

func split(s string) (string, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", "", apperrors.Validation("dataUrl", "not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", apperrors.Validation("dataUrl", "missing payload")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", "", apperrors.Validation("dataUrl", "only base64 data URLs are supported")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return mimeType, payload, nil
}

// FromUpload turns uploaded bytes into a StoredFile. The MIME type is
// detected from the content rather than trusted from the client.
func FromUpload(name string, data []byte) (models.StoredFile, error) {
	if len(data) == 0 {
		return models.StoredFile{}, apperrors.Validation("file", "file is empty")
	}
	if len(data) > MaxUploadSize {
		return models.StoredFile{}, apperrors.Validation("file", "file exceeds %d bytes", MaxUploadSize)
	}
	mimeType := mimetype.Detect(data).String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return models.StoredFile{
		DataURL: EncodeDataURL(mimeType, data),
		Name:    name,
		Type:    mimeType,
	}, nil
}

// RequireKind checks that f holds an image or video ("image" or "video").
func RequireKind(f models.StoredFile, kind string) error {
	if !strings.HasPrefix(f.Type, kind+"/") {
		return apperrors.Validation("file", "expected %s, got %s", kind, f.Type)
	}
	return nil
}

// ArtifactOf converts a stored file into an immutable artifact.
func ArtifactOf(f models.StoredFile) models.Artifact {
	return models.Artifact{DataURL: f.DataURL, MIMEType: f.Type}
}

// ArtifactFromDataURL builds an artifact, taking the MIME type from the URL.
func ArtifactFromDataURL(dataURL string) (models.Artifact, error) {
	mimeType, err := MIMEOf(dataURL)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("failed to read artifact: %w", err)
	}
	return models.Artifact{DataURL: dataURL, MIMEType: mimeType}, nil
}
