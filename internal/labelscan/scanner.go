// Package labelscan reads product labels and delivery notes through a
// multimodal language model and merges the extracted fields into a draft.
package labelscan

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrScanFailed marks any recoverable scan failure: transport errors, empty
// replies and replies without a usable JSON object.
var ErrScanFailed = errors.New("labelscan: scan failed")

// Request is one completion call with a single image.
type Request struct {
	Prompt      string
	MediaType   string
	ImageBase64 string
}

// Completer sends a request to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Scanner turns label photos into Extractions.
type Scanner struct {
	completer Completer
	logger    *slog.Logger
}

// NewScanner constructs a scanner.
func NewScanner(completer Completer, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{completer: completer, logger: logger}
}

// Scan prepares the image, asks the model and decodes its reply. The returned
// extraction always carries the evidence thumbnail when the image decoded.
func (s *Scanner) Scan(ctx context.Context, image []byte) (Extraction, error) {
	if s == nil || s.completer == nil {
		return Extraction{}, fmt.Errorf("%w: scanner not configured", ErrScanFailed)
	}
	prepared, err := PrepareImage(image)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}

	reply, err := s.completer.Complete(ctx, Request{
		Prompt:      Prompt,
		MediaType:   "image/jpeg",
		ImageBase64: base64.StdEncoding.EncodeToString(prepared.JPEG),
	})
	if err != nil {
		s.logger.Warn("label scan request failed", slog.Any("error", err))
		return Extraction{}, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}
	if strings.TrimSpace(reply) == "" {
		return Extraction{}, fmt.Errorf("%w: empty response", ErrScanFailed)
	}

	ex, err := ParseReply(reply)
	if err != nil {
		s.logger.Warn("label scan reply unusable", slog.Any("error", err))
		return Extraction{}, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}
	ex.Evidence = prepared.ThumbnailDataURL
	return ex, nil
}

// Prompt instructs the model to reply with a single JSON object.
const Prompt = `You are reading a photo taken at a goods-receiving dock. It shows a product label, a box or a delivery note.

Return ONLY a JSON object with any of these keys you can read with confidence:
{
  "supplier": "<supplier or manufacturer name>",
  "product": "<product name>",
  "expiration": "<expiration date as DD/MM/YYYY>",
  "production": "<production date as DD/MM/YYYY>",
  "batch": "<batch or lot code>",
  "tara": <weight of one empty box, grams or kilograms>,
  "standard_unit_weight": <net weight of one unit in kilograms>,
  "storage": "<frozen|chilled|ambient>",
  "temperature_range": "<recommended storage temperature, e.g. 0°C to 4°C>",
  "warning": "<anything the receiver should check, otherwise empty>"
}

Omit keys you cannot read. No markdown, no explanations.`
