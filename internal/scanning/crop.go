package scanning

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// The camera guide box the user aligns the label with.
const (
	guideWidthRatio  = 0.5
	guideHeightRatio = 0.4
	cropJPEGQuality  = 90
)

// CropGuideBox crops the centered guide box region out of a label photo and
// returns it as JPEG. Callers should keep the original image when it fails.
func CropGuideBox(imageData []byte, contentType string) ([]byte, error) {
	img, err := decodeImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	w := int(float64(b.Dx()) * guideWidthRatio)
	h := int(float64(b.Dy()) * guideHeightRatio)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("image too small to crop: %dx%d", b.Dx(), b.Dy())
	}

	cropped := imaging.CropCenter(img, w, h)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(cropJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encoding cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
