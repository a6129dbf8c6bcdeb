package service

import (
	"context"
	"fmt"
	"log/slog"

	"skin-detect/internal/domain"
)

// Detector is the remote classifier.
type Detector interface {
	Detect(ctx context.Context, img domain.SelectedImage, useEnhancement bool) (*domain.InferenceResult, error)
}

// DetectorService validates a request and hands it to the remote detector.
type DetectorService struct {
	model  Detector
	logger *slog.Logger
}

func NewDetectorService(model Detector, logger *slog.Logger) *DetectorService {
	return &DetectorService{
		model:  model,
		logger: logger,
	}
}

// Analyze runs one image through the classifier.
func (s *DetectorService) Analyze(ctx context.Context, req domain.DetectionRequest) (*domain.InferenceResult, error) {
	if req.Image.Empty() {
		return nil, domain.ErrNoFileSelected
	}

	result, err := s.model.Detect(ctx, req.Image, req.UseEnhancement)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", req.Image.Filename, err)
	}

	s.logger.Info("prediction received",
		"file", req.Image.Filename,
		"enhancement", req.UseEnhancement,
		"label", result.Prediction.Label,
		"confidence", result.ConfidenceValue(),
		"heatmap", result.HasHeatmap(),
	)

	return result, nil
}
