package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jagruk-be/models"
)

// ImageAnalysis is the classifier's verdict for an uploaded photo.
type ImageAnalysis struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// Classifier tags an issue photo with a civic category and a short title.
// Implementations may fail or time out; callers substitute FallbackAnalysis
// and never fail issue creation over it.
type Classifier interface {
	AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error)
}

// FallbackAnalysis is used whenever classification fails or returns a
// category outside the fixed taxonomy.
func FallbackAnalysis() ImageAnalysis {
	return ImageAnalysis{Category: models.CategoryOther, Title: "Unknown Issue"}
}

const classifyPrompt = `
Analyze the uploaded image and classify it into one of the following fixed civic categories:

1. Roads & Transport
2. Street Lighting
3. Garbage & Sanitation
4. Water Supply & Drainage
5. Electricity
6. Public Safety
7. Other

Return the result in structured JSON format:
{
  "category": "<one of the fixed categories above>",
  "title": "<a concise title, max 10 words>"
}
Only respond with the raw JSON object. Do not use Markdown formatting or triple backticks.
`

// OpenRouterClassifier calls a vision model through the OpenRouter chat
// completions API.
type OpenRouterClassifier struct {
	APIKey string
	Model  string
	Client *http.Client
}

func NewOpenRouterClassifier(apiKey string) *OpenRouterClassifier {
	return &OpenRouterClassifier{
		APIKey: apiKey,
		Model:  "mistralai/mistral-small-3.2-24b-instruct:free",
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (o *OpenRouterClassifier) AnalyzeImage(ctx context.Context, imageURL string) (ImageAnalysis, error) {
	payload := map[string]any{
		"model": o.Model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": classifyPrompt},
					{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ImageAnalysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://openrouter.ai/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ImageAnalysis{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return ImageAnalysis{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ImageAnalysis{}, fmt.Errorf("openrouter returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ImageAnalysis{}, err
	}
	if len(parsed.Choices) == 0 {
		return ImageAnalysis{}, fmt.Errorf("openrouter returned no choices")
	}

	var analysis ImageAnalysis
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &analysis); err != nil {
		return ImageAnalysis{}, fmt.Errorf("unparseable model response: %w", err)
	}
	return analysis, nil
}
