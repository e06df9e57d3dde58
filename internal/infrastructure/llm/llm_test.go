package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// fakeModel serves canned chat completions and records the user prompts it saw.
type fakeModel struct {
	mu      sync.Mutex
	answers []string
	prompts []string
	status  int
}

func (f *fakeModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		return
	}
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	answer := "{}"
	if len(f.answers) > 0 {
		answer, f.answers = f.answers[0], f.answers[1:]
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": answer},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
	})
}

func newTestClient(t *testing.T, model *fakeModel) *Client {
	t.Helper()
	server := httptest.NewServer(model)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: server.URL + "/v1/", Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}

func TestClustererMapsIndicesToURLs(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answers: []string{"```json\n" + `{"clusters":[
		{"topic":"Eclipse","articles":[{"index":2,"significance":0.9},{"index":9,"significance":1}]},
		{"topic":"Markets","articles":[{"index":1,"significance":0.3}]}
	]}` + "\n```"}}
	clusterer := NewClusterer(newTestClient(t, model))

	articles := []domain.Article{
		{URL: "https://a.example/stocks", Title: "Stocks slide", Source: "A"},
		{URL: "https://b.example/eclipse", Title: "Eclipse tonight", Source: "B", Description: "Skies clear"},
	}
	clusters, err := clusterer.Cluster(context.Background(), articles)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, "c1", clusters[0].ID)
	assert.Equal(t, "Eclipse", clusters[0].Topic)
	assert.Equal(t, []domain.ClusterMember{{URL: "https://b.example/eclipse", Significance: 0.9}}, clusters[0].Members)
	assert.Equal(t, "https://a.example/stocks", clusters[1].Members[0].URL)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "2. Eclipse tonight (B)")
	assert.Contains(t, model.prompts[0], "Skies clear")
}

func TestClustererReportsFailures(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{{URL: "https://a.example/1", Title: "One"}}

	_, err := NewClusterer(newTestClient(t, &fakeModel{answers: []string{`{"clusters":[]}`}})).Cluster(context.Background(), articles)
	assert.Error(t, err, "an empty grouping is a collaborator failure")

	_, err = NewClusterer(newTestClient(t, &fakeModel{answers: []string{`not json`}})).Cluster(context.Background(), articles)
	assert.Error(t, err)

	_, err = NewClusterer(newTestClient(t, &fakeModel{status: http.StatusServiceUnavailable})).Cluster(context.Background(), articles)
	assert.Error(t, err)
}

func TestTopicExtractor(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answers: []string{`{"topics":[{"name":"Space","relevance":0.9},{"name":"astronomy","relevance":0.6}]}`}}
	extractor := NewTopicExtractor(newTestClient(t, model))

	topics, err := extractor.ExtractTopics(context.Background(), domain.Article{
		URL: "https://b.example/eclipse", Title: "Eclipse tonight", Description: "Skies clear", Source: "B",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.TopicRelevance{{Name: "Space", Relevance: 0.9}, {Name: "astronomy", Relevance: 0.6}}, topics)
	assert.True(t, strings.HasPrefix(model.prompts[0], "Title: Eclipse tonight\nSource: B\n"))
}

func TestSummarizerValidatesCitations(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answers: []string{`{
		"headlines":[{"title":"Eclipse dazzles","summary":"Crowds gathered.","citations":[1,7,1]}],
		"bites":[{"text":"Stocks slid.","citations":[2]},{"text":"  ","citations":[1]}],
		"images":[{"url":"https://img.example/e.jpg","caption":"Totality"},{"url":"https://made.up/x.jpg"}]
	}`}}
	summarizer := NewSummarizer(newTestClient(t, model))

	eclipse := domain.Article{URL: "https://b.example/eclipse", Title: "Eclipse tonight", Source: "B", ThumbnailURL: "https://img.example/e.jpg"}
	stocks := domain.Article{URL: "https://a.example/stocks", Title: "Stocks slide", Source: "A", Description: "Indexes fell"}

	summary, err := summarizer.Summarize(context.Background(), ports.SummaryRequest{
		Fetched: []domain.FetchedArticle{{Article: eclipse, Title: "Eclipse dazzles crowds", Markdown: "# Eclipse\n\nCrowds gathered."}},
		Ranked:  []domain.Article{eclipse, stocks},
		Topics:  []string{"space"},
	})
	require.NoError(t, err)

	require.Len(t, summary.Headlines, 1)
	assert.Equal(t, []int{1}, summary.Headlines[0].Citations)
	require.Len(t, summary.Bites, 1)
	assert.Equal(t, []int{2}, summary.Bites[0].Citations)
	require.Len(t, summary.Images, 1)
	assert.Equal(t, 1, summary.Images[0].Citation)
	assert.Equal(t, []domain.Citation{
		{Index: 1, Title: "Eclipse dazzles crowds", URL: eclipse.URL, Source: "B"},
		{Index: 2, Title: "Stocks slide", URL: stocks.URL, Source: "A"},
	}, summary.Citations)
	assert.False(t, summary.Fallback)

	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Topics: space")
	assert.Contains(t, prompt, "[1] Eclipse dazzles crowds (B)")
	assert.Contains(t, prompt, "Crowds gathered.")
	assert.Contains(t, prompt, "Indexes fell")
}

func TestSummarizerWithoutSources(t *testing.T) {
	t.Parallel()

	summarizer := NewSummarizer(newTestClient(t, &fakeModel{}))
	_, err := summarizer.Summarize(context.Background(), ports.SummaryRequest{})
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}
