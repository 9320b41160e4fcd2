package stylist

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ParseDataURI decodes a "data:<mime>;base64,<payload>" string holding an image.
func ParseDataURI(uri string) (ReferenceImage, error) {
	trimmed := strings.TrimSpace(uri)
	if !strings.HasPrefix(trimmed, "data:") {
		return ReferenceImage{}, errors.New("reference image must be a data URI")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(trimmed, "data:"), ",")
	if !ok {
		return ReferenceImage{}, errors.New("reference image data URI has no payload")
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return ReferenceImage{}, errors.New("reference image must have an image mime type")
	}
	if !strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		return ReferenceImage{}, errors.New("reference image must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return ReferenceImage{}, errors.New("reference image payload is not valid base64")
	}
	if len(data) == 0 {
		return ReferenceImage{}, errors.New("reference image is empty")
	}
	return ReferenceImage{Data: data, MimeType: mimeType}, nil
}
