// Package proposal holds the provider-independent pieces of the proposer
// adapters: response parsing, schema checks and image payload encoding.
package proposal

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"

	"screen-agent/internal/domain/entity"
)

// maxPayloadDim bounds the longest side of an image sent to the model.
const maxPayloadDim = 1024

const jpegQuality = 75

// Parse extracts the response object from raw model text. Models wrap JSON in
// prose or code fences; everything from the first '{' to the last '}' is
// treated as the payload.
func Parse(raw string, minConfidence float64) (*entity.ProposerResponse, error) {
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &entity.ProposerError{
			Kind: entity.ProposerMalformed,
			Err:  fmt.Errorf("no JSON object in response"),
		}
	}

	var wire struct {
		Summary    *string                  `json:"summary"`
		Actions    *[]entity.ActionProposal `json:"actions"`
		Stop       *bool                    `json:"stop"`
		Confidence *float64                 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return nil, &entity.ProposerError{
			Kind: entity.ProposerMalformed,
			Err:  fmt.Errorf("parse response JSON: %w", err),
		}
	}

	if wire.Summary == nil || wire.Actions == nil || wire.Stop == nil || wire.Confidence == nil {
		return nil, &entity.ProposerError{
			Kind: entity.ProposerSchema,
			Err:  fmt.Errorf("response missing required fields (summary, actions, stop, confidence)"),
		}
	}
	if *wire.Confidence < 0 || *wire.Confidence > 1 {
		return nil, &entity.ProposerError{
			Kind: entity.ProposerSchema,
			Err:  fmt.Errorf("confidence %v outside [0,1]", *wire.Confidence),
		}
	}
	for i, a := range *wire.Actions {
		if a.Type == "" || a.Target == "" {
			return nil, &entity.ProposerError{
				Kind: entity.ProposerSchema,
				Err:  fmt.Errorf("action %d missing type or target", i),
			}
		}
	}

	resp := &entity.ProposerResponse{
		Summary:    *wire.Summary,
		Actions:    *wire.Actions,
		Stop:       *wire.Stop,
		Confidence: *wire.Confidence,
	}

	// Below the confidence floor the model is guessing; treat it as a stop
	// rather than execute low-conviction actions.
	if resp.Confidence < minConfidence {
		resp.Stop = true
		resp.Actions = nil
	}
	return resp, nil
}

// EncodeImage downscales and encodes a capture as a JPEG data URL.
func EncodeImage(img image.Image) (string, error) {
	bounds := img.Bounds()
	if bounds.Dx() > maxPayloadDim || bounds.Dy() > maxPayloadDim {
		if bounds.Dx() >= bounds.Dy() {
			img = imaging.Resize(img, maxPayloadDim, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxPayloadDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode payload image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
