package literature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guideline-agent/backend/internal/audience"
)

type fakeEutils struct {
	mu            sync.Mutex
	searches      []url.Values
	summaryCalls  int
	abstractCalls int

	srIDs        []string
	rctIDs       []string
	titles       map[string]string
	abstracts    map[string]string
	failSearch   bool
	failSummary  bool
	failAbstract map[string]bool
}

func (f *fakeEutils) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/esearch.fcgi":
		f.searches = append(f.searches, r.URL.Query())
		if f.failSearch {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ids := f.srIDs
		if strings.Contains(r.URL.Query().Get("term"), "randomized controlled trial[pt]") {
			ids = f.rctIDs
		}
		json.NewEncoder(w).Encode(map[string]any{
			"esearchresult": map[string]any{"idlist": ids},
		})

	case "/esummary.fcgi":
		f.summaryCalls++
		if f.failSummary {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		result := map[string]any{
			"uids": strings.Split(r.URL.Query().Get("id"), ","),
		}
		for id, title := range f.titles {
			result[id] = map[string]any{"title": title}
		}
		json.NewEncoder(w).Encode(map[string]any{"result": result})

	case "/efetch.fcgi":
		f.abstractCalls++
		id := r.URL.Query().Get("id")
		if f.failAbstract[id] {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, f.abstracts[id])

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeEutils, apiKey string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "https://pubmed.example", apiKey, 5*time.Second)
}

func abstractXML(sentences string) string {
	return `<PubmedArticleSet><PubmedArticle><Abstract>` +
		`<AbstractText Label="BACKGROUND">` + sentences + `</AbstractText>` +
		`</Abstract></PubmedArticle></PubmedArticleSet>`
}

func TestRetrievePrefersSystematicReviews(t *testing.T) {
	fake := &fakeEutils{
		srIDs:  []string{"101", "102", "103"},
		rctIDs: []string{"201"},
		titles: map[string]string{
			"101": "Review of salbutamol dosing",
			"102": "Steroid timing meta-analysis",
			"103": "Magnesium in acute asthma",
		},
		abstracts: map[string]string{
			"101": abstractXML("Asthma is <i>common</i>. It is often undertreated. We searched four databases."),
			"102": abstractXML("Short summary only."),
			"103": abstractXML("First point. Second point. Third point."),
		},
	}
	client := newTestClient(t, fake, "test-key")

	entries := client.Retrieve(context.Background(), "asthma exacerbation", audience.Adult)

	require.Len(t, entries, 3)
	assert.Equal(t, "Review of salbutamol dosing", entries[0].Title)
	assert.Equal(t, "Asthma is common. It is often undertreated.", entries[0].Summary)
	assert.Equal(t, "https://pubmed.example/101/", entries[0].URL)
	assert.Equal(t, "Short summary only.", entries[1].Summary)
	assert.Equal(t, "First point. Second point.", entries[2].Summary)

	// Three identifiers from phase 1, so phase 2 never runs.
	require.Len(t, fake.searches, 1)
	first := fake.searches[0]
	assert.Equal(t, "pubmed", first.Get("db"))
	assert.Equal(t, "(asthma exacerbation) AND adult AND systematic review[pt]", first.Get("term"))
	assert.Equal(t, "citation_count", first.Get("sort"))
	assert.Equal(t, "5", first.Get("retmax"))
	assert.Equal(t, "test-key", first.Get("api_key"))
}

func TestRetrieveFillsFromTrials(t *testing.T) {
	fake := &fakeEutils{
		srIDs:  []string{"101"},
		rctIDs: []string{"101", "201", "202", "203"},
		titles: map[string]string{
			"101": "Systematic review",
			"201": "Trial one",
			"202": "Trial two",
			"203": "Trial three",
		},
		abstracts: map[string]string{},
	}
	client := newTestClient(t, fake, "")

	entries := client.Retrieve(context.Background(), "sepsis", audience.Adult)

	require.Len(t, entries, 3)
	assert.Equal(t, "Systematic review", entries[0].Title)
	assert.Equal(t, "Trial one", entries[1].Title)
	assert.Equal(t, "Trial two", entries[2].Title)

	require.Len(t, fake.searches, 2)
	second := fake.searches[1]
	assert.Equal(t, "(sepsis) AND adult AND randomized controlled trial[pt]", second.Get("term"))
	assert.Equal(t, "relevance", second.Get("sort"))
	assert.Empty(t, second.Get("api_key"))
}

func TestRetrieveAudienceClauses(t *testing.T) {
	tests := []struct {
		aud  audience.Audience
		want string
	}{
		{audience.Adult, "(croup) AND adult AND systematic review[pt]"},
		{audience.Paediatric, "(croup) AND (child OR infant) AND systematic review[pt]"},
		{audience.Pregnancy, "(croup) AND pregnancy AND systematic review[pt]"},
	}
	for _, tt := range tests {
		t.Run(string(tt.aud), func(t *testing.T) {
			fake := &fakeEutils{}
			client := newTestClient(t, fake, "")

			client.Retrieve(context.Background(), "croup", tt.aud)

			require.NotEmpty(t, fake.searches)
			assert.Equal(t, tt.want, fake.searches[0].Get("term"))
		})
	}
}

func TestRetrieveNothingFound(t *testing.T) {
	fake := &fakeEutils{}
	client := newTestClient(t, fake, "")

	entries := client.Retrieve(context.Background(), "vanishingly rare condition", audience.Adult)

	assert.Empty(t, entries)
	assert.Len(t, fake.searches, 2)
	assert.Zero(t, fake.summaryCalls)
	assert.Zero(t, fake.abstractCalls)
}

func TestRetrieveSearchFailureDegrades(t *testing.T) {
	fake := &fakeEutils{failSearch: true}
	client := newTestClient(t, fake, "")

	entries := client.Retrieve(context.Background(), "asthma", audience.Adult)

	assert.Empty(t, entries)
	assert.Len(t, fake.searches, 2)
}

func TestRetrieveSummaryFailureDegrades(t *testing.T) {
	fake := &fakeEutils{
		srIDs:       []string{"101", "102", "103"},
		failSummary: true,
	}
	client := newTestClient(t, fake, "")

	entries := client.Retrieve(context.Background(), "asthma", audience.Adult)

	assert.Empty(t, entries)
	assert.Zero(t, fake.abstractCalls)
}

func TestRetrieveAbstractFailureDegradesOneEntry(t *testing.T) {
	fake := &fakeEutils{
		srIDs: []string{"101", "102", "103"},
		titles: map[string]string{
			"101": "First",
			"102": "Second",
			"103": "Third",
		},
		abstracts: map[string]string{
			"101": abstractXML("Fine."),
			"103": abstractXML("Also fine."),
		},
		failAbstract: map[string]bool{"102": true},
	}
	client := newTestClient(t, fake, "")

	entries := client.Retrieve(context.Background(), "asthma", audience.Adult)

	require.Len(t, entries, 3)
	assert.Equal(t, "Fine.", entries[0].Summary)
	assert.Empty(t, entries[1].Summary)
	assert.Equal(t, "Also fine.", entries[2].Summary)
}

func TestFirstSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"no terminator", "ongoing fragment without punctuation", "ongoing fragment without punctuation"},
		{"single sentence", "Only one sentence here.", "Only one sentence here."},
		{"two sentences", "First. Second.", "First. Second."},
		{"truncates third", "First. Second. Third.", "First. Second."},
		{"mixed terminators", "Does it work? It does! And more besides.", "Does it work? It does!"},
		{"decimal not split", "Dose is 0.5 mg per kg daily. Review in two weeks. Then stop.", "Dose is 0.5 mg per kg daily. Review in two weeks."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstSentences(tt.text, 2))
		})
	}
}
