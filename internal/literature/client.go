package literature

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/guideline-agent/backend/internal/audience"
	"github.com/guideline-agent/backend/internal/metrics"
	"github.com/guideline-agent/backend/internal/models"
	"github.com/guideline-agent/backend/pkg/logger"
)

const (
	searchRetMax     = 5
	maxEntries       = 3
	summarySentences = 2
)

// Client retrieves published papers through an NCBI E-utilities style API:
// esearch for identifiers, esummary for titles, efetch for abstracts.
type Client struct {
	baseURL        string
	articleBaseURL string
	apiKey         string
	httpClient     *http.Client
}

func NewClient(baseURL, articleBaseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		articleBaseURL: strings.TrimSuffix(articleBaseURL, "/"),
		apiKey:         apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Retrieve returns up to three papers for the query, systematic reviews
// first, trials filling the remaining slots. It never fails: every upstream
// problem is logged and degrades to fewer entries, down to none.
func (c *Client) Retrieve(ctx context.Context, query string, aud audience.Audience) []models.LiteratureEntry {
	term := searchTerm(query, aud)

	ids := dedupe(nil, c.search(ctx, term+" AND systematic review[pt]", "citation_count", "systematic_review"))
	if len(ids) < maxEntries {
		ids = dedupe(ids, c.search(ctx, term+" AND randomized controlled trial[pt]", "relevance", "rct"))
	}
	if len(ids) > maxEntries {
		ids = ids[:maxEntries]
	}
	if len(ids) == 0 {
		logger.Info("literature retrieval found nothing", zap.String("query", query))
		return nil
	}

	titles := c.titles(ctx, ids)
	if titles == nil {
		return nil
	}

	entries := make([]models.LiteratureEntry, 0, len(ids))
	for _, id := range ids {
		title := titles[id]
		if title == "" {
			logger.Debug("skipping literature entry without title", zap.String("id", id))
			continue
		}
		entries = append(entries, models.LiteratureEntry{
			Title:   title,
			Summary: c.abstractSummary(ctx, id),
			URL:     fmt.Sprintf("%s/%s/", c.articleBaseURL, id),
		})
	}

	logger.Info("literature retrieval completed",
		zap.String("query", query),
		zap.Int("entries", len(entries)),
	)

	return entries
}

// searchTerm narrows the query with an audience clause so paediatric
// questions surface paediatric papers.
func searchTerm(query string, aud audience.Audience) string {
	clause := "adult"
	switch aud {
	case audience.Paediatric:
		clause = "(child OR infant)"
	case audience.Pregnancy:
		clause = "pregnancy"
	}
	return fmt.Sprintf("(%s) AND %s", query, clause)
}

func dedupe(ids, more []string) []string {
	seen := make(map[string]bool, len(ids)+len(more))
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range more {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) search(ctx context.Context, term, sort, phase string) []string {
	params := url.Values{}
	params.Add("db", "pubmed")
	params.Add("term", term)
	params.Add("retmode", "json")
	params.Add("retmax", strconv.Itoa(searchRetMax))
	params.Add("sort", sort)

	metrics.LiteratureSearches.WithLabelValues(phase).Inc()

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		logger.Warn("literature search failed",
			zap.String("phase", phase),
			zap.Error(err))
		metrics.LiteratureFailures.WithLabelValues("search").Inc()
		return nil
	}

	var searchResp struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		logger.Warn("literature search returned invalid JSON",
			zap.String("phase", phase),
			zap.Error(err))
		metrics.LiteratureFailures.WithLabelValues("search").Inc()
		return nil
	}

	return searchResp.ESearchResult.IDList
}

func (c *Client) titles(ctx context.Context, ids []string) map[string]string {
	params := url.Values{}
	params.Add("db", "pubmed")
	params.Add("id", strings.Join(ids, ","))
	params.Add("retmode", "json")

	body, err := c.get(ctx, "esummary.fcgi", params)
	if err != nil {
		logger.Warn("literature summary fetch failed", zap.Error(err))
		metrics.LiteratureFailures.WithLabelValues("summary").Inc()
		return nil
	}

	var summaryResp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &summaryResp); err != nil {
		logger.Warn("literature summary returned invalid JSON", zap.Error(err))
		metrics.LiteratureFailures.WithLabelValues("summary").Inc()
		return nil
	}

	titles := make(map[string]string, len(ids))
	for _, id := range ids {
		raw, ok := summaryResp.Result[id]
		if !ok {
			continue
		}
		var doc struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		titles[id] = doc.Title
	}
	return titles
}

// abstractSummary fetches one abstract record and reduces it to at most two
// sentences of plain text. Any failure degrades to an empty summary so one
// bad record does not sink the batch.
func (c *Client) abstractSummary(ctx context.Context, id string) string {
	params := url.Values{}
	params.Add("db", "pubmed")
	params.Add("id", id)
	params.Add("rettype", "abstract")
	params.Add("retmode", "xml")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		logger.Warn("abstract fetch failed",
			zap.String("id", id),
			zap.Error(err))
		metrics.LiteratureFailures.WithLabelValues("abstract").Inc()
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logger.Warn("abstract record unparseable",
			zap.String("id", id),
			zap.Error(err))
		metrics.LiteratureFailures.WithLabelValues("abstract").Inc()
		return ""
	}

	var parts []string
	doc.Find("abstracttext").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(s.Text()))
	})

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return firstSentences(text, summarySentences)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// firstSentences cuts text after the n-th sentence terminator that is
// followed by whitespace. Text with fewer boundaries passes through whole.
func firstSentences(text string, n int) string {
	locs := sentenceEnd.FindAllStringIndex(text, n)
	if len(locs) < n {
		return text
	}
	return text[:locs[n-1][0]+1]
}
