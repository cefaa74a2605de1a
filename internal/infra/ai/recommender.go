// Package ai implements the generative recommendation service client.
// Model output is untrusted free text; a JSON document is extracted by
// regex and schema-checked, and any failure along the way falls back to
// the deterministic local generator. Callers never see an error.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"ordersync/config"
	"ordersync/internal/domain/entity"
	"ordersync/internal/domain/service"

	"go.uber.org/fx"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
)

// jsonBlockPattern grabs the first {...} block in the model output,
// tolerating prose or markdown fences around it.
var jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)

type recommender struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// RecommenderParams holds dependencies for the Recommender, injected by Fx.
type RecommenderParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewRecommender creates a Recommender from configuration. Without an
// endpoint every call is served by the local fallback generator.
func NewRecommender(params RecommenderParams) service.Recommender {
	cfg := params.Config.Recommender
	if cfg == nil || cfg.Endpoint == "" {
		params.Logger.Info("Recommender not configured, using local fallback only")

		return &recommender{logger: params.Logger}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &recommender{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     params.Logger,
	}
}

// chatRequest is the OpenAI-compatible chat completion request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completion response we read.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// recommendationsDoc is the JSON schema the prompt asks the model for.
type recommendationsDoc struct {
	Recommendations []service.Recommendation `json:"recommendations"`
}

// Recommend returns suggestions for the given preferences. The returned
// slice is never empty: any transport, decoding, or schema failure is
// logged and replaced by the deterministic fallback.
func (r *recommender) Recommend(ctx context.Context, prefs entity.UserPreferences) []service.Recommendation {
	if r.httpClient == nil {
		return Fallback(prefs)
	}

	text, err := r.complete(ctx, buildPrompt(prefs))
	if err != nil {
		r.logger.Warn("Recommender call failed, using fallback", slog.Any("error", err))

		return Fallback(prefs)
	}

	recs, ok := extractRecommendations(text)
	if !ok {
		r.logger.Warn("Recommender returned unusable output, using fallback",
			slog.Int("response_len", len(text)),
		)

		return Fallback(prefs)
	}

	return recs
}

func (r *recommender) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a food recommendation assistant. Reply with a single JSON object only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{code: resp.StatusCode}
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", err
	}
	if len(chat.Choices) == 0 {
		return "", errEmptyResponse
	}

	return chat.Choices[0].Message.Content, nil
}

// extractRecommendations pulls the first JSON object out of free text and
// checks it against the expected schema.
func extractRecommendations(text string) ([]service.Recommendation, bool) {
	block := jsonBlockPattern.FindString(text)
	if block == "" {
		return nil, false
	}

	var doc recommendationsDoc
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return nil, false
	}
	if len(doc.Recommendations) == 0 {
		return nil, false
	}

	// Drop entries missing required fields instead of failing the batch
	valid := make([]service.Recommendation, 0, len(doc.Recommendations))
	for _, rec := range doc.Recommendations {
		if rec.Title == "" {
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return nil, false
	}

	return valid, true
}

func buildPrompt(prefs entity.UserPreferences) string {
	var sb strings.Builder
	sb.WriteString("Suggest up to 5 dishes for a customer. ")
	if len(prefs.FavoriteCuisines) > 0 {
		sb.WriteString("Favorite cuisines: " + strings.Join(prefs.FavoriteCuisines, ", ") + ". ")
	}
	if len(prefs.PreferredRestaurants) > 0 {
		sb.WriteString("Preferred restaurants: " + strings.Join(prefs.PreferredRestaurants, ", ") + ". ")
	}
	if len(prefs.FrequentItems) > 0 {
		sb.WriteString("Frequently ordered: " + strings.Join(prefs.FrequentItems, ", ") + ". ")
	}
	sb.WriteString(`Respond with JSON: {"recommendations":[{"title":"","restaurant":"","reason":"","confidence":0.0}]}`)

	return sb.String()
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}

var errEmptyResponse = &statusError{code: http.StatusBadGateway}
