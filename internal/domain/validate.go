package domain

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"
)

// ValidateDiagram checks an upload before anything touches the remote
// stage: extension and sniffed content type must be PNG or JPEG, and the
// image has to fit inside the documented service limits. Rejecting locally
// keeps limit violations from surfacing as opaque remote errors.
func ValidateDiagram(filename string, contents []byte) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	switch http.DetectContentType(contents) {
	case "image/png", "image/jpeg":
	default:
		return fmt.Errorf("%w: %s does not contain PNG or JPEG data", ErrUnsupportedFormat, filename)
	}

	if len(contents) > MaxDiagramBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrDiagramTooLarge, len(contents), MaxDiagramBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(contents))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width > MaxDiagramDimension || cfg.Height > MaxDiagramDimension {
		return fmt.Errorf("%w: %dx%d, limit is %dx%d",
			ErrDiagramTooLarge, cfg.Width, cfg.Height, MaxDiagramDimension, MaxDiagramDimension)
	}

	return nil
}
