package ai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ordersync/config"
	"ordersync/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecommender(endpoint string) *recommender {
	cfg := &config.Config{
		Recommender: &config.RecommenderConfig{
			Endpoint: endpoint,
			Model:    "test-model",
			Timeout:  2 * time.Second,
		},
	}

	return NewRecommender(RecommenderParams{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).(*recommender)
}

func chatReply(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + marshalString(content) + `}}]}`
}

func marshalString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}

	return out + `"`
}

func TestRecommend_ParsesModelJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		io.WriteString(w, chatReply("Sure! Here you go:\n{\"recommendations\":[{\"title\":\"Pad Thai\",\"restaurant\":\"Thai House\",\"reason\":\"matches your taste\",\"confidence\":0.8}]}"))
	}))
	defer srv.Close()

	recs := newTestRecommender(srv.URL).Recommend(context.Background(), entity.UserPreferences{})
	require.Len(t, recs, 1)
	assert.Equal(t, "Pad Thai", recs[0].Title)
	assert.Equal(t, "Thai House", recs[0].Restaurant)
}

func TestRecommend_FallsBackOnNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatReply("I cannot answer that."))
	}))
	defer srv.Close()

	prefs := entity.UserPreferences{FrequentItems: []string{"Margherita"}}
	recs := newTestRecommender(srv.URL).Recommend(context.Background(), prefs)
	require.NotEmpty(t, recs)
	assert.Equal(t, "Margherita", recs[0].Title)
}

func TestRecommend_FallsBackOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	recs := newTestRecommender(srv.URL).Recommend(context.Background(), entity.UserPreferences{})
	assert.NotEmpty(t, recs)
}

func TestRecommend_UnconfiguredUsesFallback(t *testing.T) {
	rec := NewRecommender(RecommenderParams{
		Config: &config.Config{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	recs := rec.Recommend(context.Background(), entity.UserPreferences{})
	assert.NotEmpty(t, recs)
}

func TestExtractRecommendations(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{name: "bare object", text: `{"recommendations":[{"title":"Ramen"}]}`, ok: true},
		{name: "fenced object", text: "```json\n{\"recommendations\":[{\"title\":\"Ramen\"}]}\n```", ok: true},
		{name: "prose around object", text: `Of course. {"recommendations":[{"title":"Ramen"}]} Enjoy!`, ok: true},
		{name: "no json", text: "nothing here", ok: false},
		{name: "empty list", text: `{"recommendations":[]}`, ok: false},
		{name: "entries missing titles", text: `{"recommendations":[{"restaurant":"x"}]}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := extractRecommendations(tt.text)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestFallback_Deterministic(t *testing.T) {
	prefs := entity.UserPreferences{
		FavoriteCuisines:     []string{"thai", "italian"},
		FrequentItems:        []string{"Pad Thai"},
		PreferredRestaurants: []string{"Thai House"},
	}

	first := Fallback(prefs)
	second := Fallback(prefs)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestFallback_EmptyPreferences(t *testing.T) {
	recs := Fallback(entity.UserPreferences{})
	require.Len(t, recs, 1)
	assert.Equal(t, "Today's most ordered dishes", recs[0].Title)
}
