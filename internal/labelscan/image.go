package labelscan

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	maxScanEdge   = 1280
	thumbnailEdge = 320
)

// PreparedImage is the downscaled upload plus its evidence thumbnail.
type PreparedImage struct {
	JPEG             []byte
	ThumbnailDataURL string
}

// PrepareImage decodes an uploaded photo, fits it within maxScanEdge and
// builds the thumbnail kept on the record as evidence.
func PrepareImage(data []byte) (PreparedImage, error) {
	if len(data) == 0 {
		return PreparedImage{}, fmt.Errorf("empty image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return PreparedImage{}, fmt.Errorf("decode image: %w", err)
	}

	scan := imaging.Fit(img, maxScanEdge, maxScanEdge, imaging.Lanczos)
	var scanBuf bytes.Buffer
	if err := imaging.Encode(&scanBuf, scan, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return PreparedImage{}, fmt.Errorf("encode scan image: %w", err)
	}

	thumb := imaging.Fit(img, thumbnailEdge, thumbnailEdge, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(70)); err != nil {
		return PreparedImage{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return PreparedImage{
		JPEG:             scanBuf.Bytes(),
		ThumbnailDataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(thumbBuf.Bytes()),
	}, nil
}
