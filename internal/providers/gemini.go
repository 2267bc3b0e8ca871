package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	dryRunAnswer         = "```json\n{\"score\": 72, \"critique\": \"YES - Balanced proportions with even skin tone and tidy nails. Fingers taper naturally and the knuckles are smooth. Lighting hides some texture on the back of the hand. The pose is relaxed and commercial. Nail beds are clean but could be shaped. Overall a camera friendly hand with some polishing needed.\", \"strengths\": [\"Balanced proportions\", \"Even skin tone\", \"Tidy nails\", \"Smooth knuckles\", \"Relaxed pose\"], \"improvements\": [\"Shape nails\", \"Moisturize cuticles\", \"Softer lighting\", \"Neutral background\", \"Straighten wrist\"], \"verdict\": \"Strong candidate\"}\n```"
)

// Gemini calls the generateContent endpoint of the Gemini API.
type Gemini struct {
	Key, Model string
	BaseURL    string
	DryRun     bool
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	Backoff    time.Duration
	Log        *zap.Logger
}

// NewGemini builds a throttled Gemini client. Non-positive rps/burst fall back to 2.
func NewGemini(key, model, baseURL string, rps, burst, maxRetries int, dryRun bool, log *zap.Logger) *Gemini {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 2
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gemini{
		Key:        key,
		Model:      model,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		DryRun:     dryRun,
		Client:     &http.Client{Timeout: 60 * time.Second},
		Limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		MaxRetries: maxRetries,
		Backoff:    500 * time.Millisecond,
		Log:        log,
	}
}

func (g *Gemini) Name() string { return "gemini" }

// MaxCallDuration is the worst case for one Analyze call: every attempt
// running to the client timeout plus the backoff between attempts.
func (g *Gemini) MaxCallDuration() time.Duration {
	attempts := time.Duration(g.MaxRetries + 1)
	backoff := time.Duration(g.MaxRetries*(g.MaxRetries+1)/2) * g.Backoff
	return attempts*g.Client.Timeout + backoff
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Analyze sends the prompt and the inline image and returns the first candidate's text.
// 429 and 5xx responses are retried with linear backoff.
func (g *Gemini) Analyze(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	log := g.Log.With(zap.String("provider", g.Name()), zap.String("model", g.Model))
	if g.DryRun {
		log.Info("gemini dry run enabled, skipping API call")
		return dryRunAnswer, nil
	}

	body := map[string]any{
		"contents": []any{
			map[string]any{
				"role": "user",
				"parts": []any{
					map[string]string{"text": prompt},
					map[string]any{"inlineData": map[string]string{
						"mimeType": mime,
						"data":     base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     0.4,
			"maxOutputTokens": 1024,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, g.Model)

	var lastErr error
	start := time.Now()
	for attempt := 0; attempt <= g.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * g.Backoff):
			}
		}
		if err := g.Limiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-goog-api-key", g.Key)

		resp, err := g.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			log.Warn("gemini request failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("gemini response read: %w", err)
			log.Warn("gemini response read failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = errors.New("gemini http " + resp.Status)
			log.Warn("gemini retryable status", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.Error("gemini http error", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
			return "", errors.New("gemini http " + resp.Status)
		}

		var out geminiResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", fmt.Errorf("gemini response decode: %w", err)
		}
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: %s", ErrBlocked, out.PromptFeedback.BlockReason)
		}
		var text string
		if len(out.Candidates) > 0 && len(out.Candidates[0].Content.Parts) > 0 {
			text = strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
		}
		if text == "" {
			return "", errors.New("gemini empty candidates")
		}
		log.Debug("gemini response", zap.Duration("latency", time.Since(start)), zap.Int("chars", len(text)))
		return text, nil
	}
	return "", lastErr
}
