package guidelines

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/guideline-agent/backend/internal/audience"
	"github.com/guideline-agent/backend/pkg/logger"
)

// Document is one local guideline file, described by its filename. The
// audience tag comes from classifying the filename itself, so a file named
// paediatric_asthma_ocr.pdf is offered for paediatric questions only.
type Document struct {
	Title    string            `json:"title"`
	FileName string            `json:"file_name"`
	Link     string            `json:"link"`
	Audience audience.Audience `json:"audience"`
}

// MatchResult splits matched documents into All (used for link enrichment)
// and Primary (the audience-filtered subset offered to the model).
type MatchResult struct {
	All     []Document
	Primary []Document
}

// PrimaryTitles returns the titles the model may choose between.
func (m MatchResult) PrimaryTitles() []string {
	titles := make([]string, 0, len(m.Primary))
	for _, doc := range m.Primary {
		titles = append(titles, doc.Title)
	}
	return titles
}

// Store reads guideline documents from a directory. It holds no state beyond
// the configured paths; every List call is a fresh snapshot, so files added
// or removed between requests are picked up without a restart.
type Store struct {
	dir         string
	routePrefix string
}

func NewStore(dir, routePrefix string) *Store {
	return &Store{
		dir:         dir,
		routePrefix: strings.TrimSuffix(routePrefix, "/"),
	}
}

// Dir returns the directory documents are served from.
func (s *Store) Dir() string {
	return s.dir
}

// List snapshots the PDF files in the guideline directory. A missing or
// unreadable directory is an empty list, not an error.
func (s *Store) List() []Document {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logger.Warn("guideline directory unavailable",
			zap.String("dir", s.dir),
			zap.Error(err))
		return nil
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		docs = append(docs, Document{
			Title:    TitleFromFileName(name),
			FileName: name,
			Link:     s.routePrefix + "/" + url.PathEscape(name),
			Audience: audience.Classify(name),
		})
	}
	return docs
}

// Match finds documents whose filename contains any whitespace-separated
// query token, case-insensitively. OR semantics: one matching token is
// enough. An empty query matches nothing.
func (s *Store) Match(query string, target audience.Audience) MatchResult {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return MatchResult{}
	}

	var result MatchResult
	for _, doc := range s.List() {
		if !containsAnyToken(strings.ToLower(doc.FileName), tokens) {
			continue
		}
		result.All = append(result.All, doc)
		if doc.Audience == target {
			result.Primary = append(result.Primary, doc)
		}
	}
	return result
}

func containsAnyToken(name string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(name, token) {
			return true
		}
	}
	return false
}

var titleCaser = cases.Title(language.BritishEnglish)

// TitleFromFileName turns "sepsis_pathway_ocr.pdf" into "Sepsis Pathway".
func TitleFromFileName(name string) string {
	title := strings.ToLower(name)
	title = strings.TrimSuffix(title, ".pdf")
	title = strings.TrimSuffix(title, "_ocr")
	title = strings.ReplaceAll(title, "_", " ")
	return titleCaser.String(strings.TrimSpace(title))
}

// NormalizeTitle reduces a title to lowercase letters and digits so that a
// model's paraphrase of a document title ("Asthma  pathway") still joins to
// the real document. Normalizing twice gives the same result as once.
func NormalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
