package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/guideline-agent/backend/internal/metrics"
	"github.com/guideline-agent/backend/internal/models"
	"github.com/guideline-agent/backend/pkg/logger"
)

// ErrParse marks model output that no recovery strategy could turn into a
// JSON object. Like ErrUpstream it is fatal for the whole request.
var ErrParse = errors.New("unparseable model output")

// logSnippetLen bounds how much raw model output lands in the server log
// when every recovery strategy fails.
const logSnippetLen = 800

var (
	fencedJSONRe  = regexp.MustCompile("(?is)```json\\s*(.+?)```")
	fencedAnyRe   = regexp.MustCompile("(?s)```\\s*(.+?)```")
	taggedJSONRe  = regexp.MustCompile(`(?is)<json>\s*(.+?)\s*</json>`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// A strategy carves one JSON candidate out of decorated model output. Lenient
// strategies get a second parse attempt with trailing commas stripped.
type strategy struct {
	name      string
	candidate func(string) (string, bool)
	lenient   bool
}

var strategies = []strategy{
	{name: "raw", candidate: wholeText},
	{name: "fenced_block", candidate: fencedBlock, lenient: true},
	{name: "json_tags", candidate: taggedBlock, lenient: true},
	{name: "brace_slice", candidate: braceSlice, lenient: true},
}

// Extract parses model output into a ModelAnswer, recovering from the ways
// models decorate JSON. Strategies run in order, each only when the previous
// ones failed:
//
//  1. the trimmed raw text as-is, parsed strictly
//  2. the first ```json fenced block, or any fenced block when none is
//     labelled json
//  3. the text between <json> and </json> tags
//  4. the slice from the first "{" to the last "}"
//
// When everything fails the first 800 characters are logged and ErrParse is
// returned.
func Extract(raw string) (*models.ModelAnswer, error) {
	trimmed := strings.TrimSpace(raw)

	for _, st := range strategies {
		candidate, ok := st.candidate(trimmed)
		if !ok {
			continue
		}
		ans, ok := parseObject(candidate)
		if !ok && st.lenient {
			ans, ok = parseObject(trailingComma.ReplaceAllString(candidate, "$1"))
		}
		if ok {
			return recovered(st.name, ans), nil
		}
	}

	snippet := trimmed
	if len(snippet) > logSnippetLen {
		snippet = snippet[:logSnippetLen]
	}
	logger.Error("model output unparseable after all recovery strategies",
		zap.String("snippet", snippet))

	return nil, ErrParse
}

func recovered(strategy string, ans *models.ModelAnswer) *models.ModelAnswer {
	metrics.ExtractorRecoveries.WithLabelValues(strategy).Inc()
	if strategy != "raw" {
		logger.Debug("model output recovered", zap.String("strategy", strategy))
	}
	return ans
}

// parseObject accepts only a JSON object, so a bare "null" or a quoted string
// does not count as a successful extraction.
func parseObject(s string) (*models.ModelAnswer, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var ans models.ModelAnswer
	if err := json.Unmarshal([]byte(s), &ans); err != nil {
		return nil, false
	}
	return &ans, true
}

func wholeText(s string) (string, bool) {
	return s, true
}

func fencedBlock(s string) (string, bool) {
	if m := fencedJSONRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := fencedAnyRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

func taggedBlock(s string) (string, bool) {
	if m := taggedJSONRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

func braceSlice(s string) (string, bool) {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first < 0 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}
