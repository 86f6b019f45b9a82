package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/metrics"
)

// Copywriter produces ad copy from a prompt.
type Copywriter interface {
	GenerateCopy(ctx context.Context, system, prompt string) (string, error)
}

// ImageGenerator renders a product image and returns its raw bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, negativePrompt, aspectRatio string) ([]byte, error)
}

// ProviderError marks a failure of a downstream generation provider so
// handlers can answer 502 with a retryable hint.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type AdService interface {
	GenerateAd(ctx context.Context, req *models.AdRequest) (*models.AdResult, error)
}

type adService struct {
	copywriter Copywriter
	images     ImageGenerator
	logger     *slog.Logger
}

func NewAdService(copywriter Copywriter, images ImageGenerator, logger *slog.Logger) AdService {
	return &adService{
		copywriter: copywriter,
		images:     images,
		logger:     logger,
	}
}

// GenerateAd produces ad copy and a product image. The two provider
// calls are independent, so they run concurrently; the first definitive
// failure cancels the other.
func (s *adService) GenerateAd(ctx context.Context, req *models.AdRequest) (*models.AdResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type copyResult struct {
		text string
		err  error
	}
	type imageResult struct {
		data []byte
		err  error
	}

	copyCh := make(chan copyResult, 1)
	imageCh := make(chan imageResult, 1)

	go func() {
		text, err := s.copywriter.GenerateCopy(ctx, "You are a creative ad copywriter.", copyPrompt(req))
		copyCh <- copyResult{text: text, err: err}
	}()

	go func() {
		data, err := s.images.GenerateImage(ctx, visualPrompt(req), negativePrompt, aspectRatio(req.ImageSize))
		imageCh <- imageResult{data: data, err: err}
	}()

	copyRes := <-copyCh
	if copyRes.err != nil {
		cancel()
		<-imageCh
		metrics.AdGenerations.WithLabelValues("copy_failed").Inc()
		return nil, &ProviderError{Provider: "copy", Err: copyRes.err}
	}

	imageRes := <-imageCh
	if imageRes.err != nil {
		metrics.AdGenerations.WithLabelValues("image_failed").Inc()
		return nil, &ProviderError{Provider: "image", Err: imageRes.err}
	}

	metrics.AdGenerations.WithLabelValues("ok").Inc()

	return &models.AdResult{
		Text:     copyRes.text,
		ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageRes.data),
	}, nil
}

func copyPrompt(req *models.AdRequest) string {
	return fmt.Sprintf(
		"Create a compelling %s ad for %s, a product described as: %q. "+
			"Target it to %s on %s. Make it short and catchy.",
		strings.ToLower(req.Tone), req.ProductName, req.Description,
		req.Audience, req.Platform,
	)
}

func visualPrompt(req *models.AdRequest) string {
	return fmt.Sprintf(
		"Studio product photograph for a %s %s ad featuring %s. "+
			"Clean composition, brand-safe, gradient or soft background, "+
			"negative space reserved for headline area, no overlays, "+
			"natural lighting, high contrast, balanced framing.",
		strings.ToLower(req.Tone), req.Platform, req.ProductName,
	)
}

const negativePrompt = "text, letters, words, numbers, typography, captions, " +
	"hashtags, emojis, watermarks, logos, brandmarks, signage, packaging text, " +
	"stickers, UI text, labels, handwriting"

// aspectRatio maps the UI's pixel sizes onto Ideogram's ratio names.
func aspectRatio(size string) string {
	switch strings.ReplaceAll(strings.ToLower(size), " ", "") {
	case "1024x1792", "720x1280", "1080x1920":
		return "9x16"
	case "1792x1024", "1280x720", "1920x1080":
		return "16x9"
	default:
		return "1x1"
	}
}
