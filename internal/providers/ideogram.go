package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const ideogramURL = "https://api.ideogram.ai/v1/ideogram-v3/generate"

type IdeogramClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewIdeogramClient(apiKey string) *IdeogramClient {
	return &IdeogramClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// GenerateImage renders one image and returns its bytes. Ideogram
// responds with a short-lived URL which is fetched immediately.
func (c *IdeogramClient) GenerateImage(ctx context.Context, prompt, negativePrompt, aspectRatio string) ([]byte, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"prompt":          prompt,
		"negative_prompt": negativePrompt,
		"aspect_ratio":    aspectRatio,
		"rendering_speed": "DEFAULT",
		"num_images":      "1",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ideogramURL, strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}

	// Ideogram authenticates with this exact header name.
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ideogram request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ideogram returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var response struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse ideogram response: %w", err)
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("ideogram returned no images")
	}

	return c.fetchImage(ctx, response.Data[0].URL)
}

func (c *IdeogramClient) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download generated image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
