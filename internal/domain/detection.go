package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
)

const benignLabel = "Benign"

// SelectedImage is the raw file chosen by the user.
type SelectedImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s SelectedImage) Empty() bool {
	return len(s.Data) == 0
}

// DetectionRequest is one submission to the inference endpoint.
type DetectionRequest struct {
	Image          SelectedImage
	UseEnhancement bool
}

// Images holds base64 payloads returned by the inference endpoint.
// Heatmap is optional: not every run produces one.
type Images struct {
	Original string `json:"original"`
	Heatmap  string `json:"heatmap,omitempty"`
	Chart    string `json:"chart"`
}

// Prediction is the classifier label and its confidence in percent.
type Prediction struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// InferenceResult is the body of a successful /api/detect response.
type InferenceResult struct {
	Images     Images     `json:"images"`
	Prediction Prediction `json:"prediction"`
}

// Validate reports whether the result has the shape the view can render.
func (r *InferenceResult) Validate() error {
	if r.Images.Original == "" {
		return errors.New("missing images.original")
	}
	if r.Images.Chart == "" {
		return errors.New("missing images.chart")
	}
	if r.Prediction.Label == "" {
		return errors.New("missing prediction.label")
	}
	if r.Prediction.Confidence == nil {
		return errors.New("missing prediction.confidence")
	}

	fields := map[string]string{
		"original": r.Images.Original,
		"heatmap":  r.Images.Heatmap,
		"chart":    r.Images.Chart,
	}
	for name, v := range fields {
		if v == "" {
			continue
		}
		if _, err := base64.StdEncoding.DecodeString(v); err != nil {
			return fmt.Errorf("images.%s: %w", name, err)
		}
	}
	return nil
}

func (r *InferenceResult) HasHeatmap() bool {
	return r.Images.Heatmap != ""
}

// IsBenign is true only for the literal "Benign" label; every other label
// gets the non-benign style.
func (r *InferenceResult) IsBenign() bool {
	return r.Prediction.Label == benignLabel
}

func (r *InferenceResult) ConfidenceValue() float64 {
	if r.Prediction.Confidence == nil {
		return 0
	}
	return *r.Prediction.Confidence
}

// ConfidenceText formats the confidence with two decimals, halves rounded
// away from zero (87.345 -> "87.35").
func (r *InferenceResult) ConfidenceText() string {
	return FormatConfidence(r.ConfidenceValue())
}

// FormatConfidence renders v the way ConfidenceText does.
func FormatConfidence(v float64) string {
	return fmt.Sprintf("%.2f", math.Round(v*100)/100)
}
