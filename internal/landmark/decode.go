package landmark

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// ErrDecode marks a frame payload that could not be decoded as an image.
// It is recoverable: the caller reports it for that frame only.
var ErrDecode = errors.New("undecodable frame payload")

// DecodeFrame validates a base64 frame payload and returns the raw image
// bytes. A leading data-URL prefix ("data:image/jpeg;base64,...") is
// stripped. The image header must parse; the detector sidecar does the
// actual perception work on the returned bytes.
func DecodeFrame(payload string) ([]byte, error) {
	if idx := strings.IndexByte(payload, ','); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	if _, _, err = image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return raw, nil
}
