package enrich

import (
	"net/url"
	"strings"

	"github.com/guideline-agent/backend/internal/guidelines"
	"github.com/guideline-agent/backend/internal/models"
)

const maxLinks = 3

const cksSearchURL = "https://cks.nice.org.uk/search/?q="

const (
	noGuidelineTitle   = "No applicable local guideline"
	noGuidelineSummary = "No local guideline document matches this question."
)

// Enrich turns an untrusted model answer into the final response shape. Model
// output keeps its narrative content; everything that must be real (document
// links, the guideline URL, the CKS link) is overwritten from known-good
// sources, and sections the request did not ask for are dropped entirely.
func Enrich(ans *models.ModelAnswer, matches guidelines.MatchResult, adjustedQuery string, flags models.InclusionFlags) models.StructuredAnswer {
	if ans == nil {
		ans = &models.ModelAnswer{}
	}

	out := models.StructuredAnswer{Summary: ans.Summary}
	if flags.Local {
		out.Local = enrichLocal(ans.Local, matches)
	}
	if flags.National {
		out.National = enrichNational(ans.National, adjustedQuery)
	}
	return out
}

func enrichLocal(section *models.LocalSection, matches guidelines.MatchResult) *models.LocalSection {
	if section == nil {
		section = &models.LocalSection{}
	}

	section.Links = documentLinks(matches.All)
	section.Guideline = resolveGuideline(section.Guideline, matches)

	if section.DecisionTree == nil {
		section.DecisionTree = []models.Step{}
	}
	if section.AdmissionCriteria == nil {
		section.AdmissionCriteria = []string{}
	}
	if section.RecommendedInvestigations == nil {
		section.RecommendedInvestigations = []string{}
	}
	if section.RecommendedManagement == nil {
		section.RecommendedManagement = []string{}
	}

	return section
}

// documentLinks replaces whatever the model proposed with links to real
// matched documents, at most three.
func documentLinks(docs []guidelines.Document) []models.Link {
	links := make([]models.Link, 0, maxLinks)
	for _, doc := range docs {
		if len(links) == maxLinks {
			break
		}
		links = append(links, models.Link{Title: doc.Title, URL: doc.Link})
	}
	return links
}

// resolveGuideline joins the model's chosen guideline to a real document by
// normalized title. "specific" survives only when that join succeeds; a
// failed join also clears the URL, since the model cannot know real document
// paths. A missing guideline object, or any claim made when zero documents
// matched, falls back to the first primary match or to the explicit
// no-guideline sentinel.
func resolveGuideline(g *models.Guideline, matches guidelines.MatchResult) *models.Guideline {
	if g == nil || strings.TrimSpace(g.Title) == "" || len(matches.All) == 0 {
		return fallbackGuideline(matches.Primary)
	}

	doc, found := lookupByTitle(g.Title, matches.All)
	if found {
		g.URL = doc.Link
	} else {
		g.URL = ""
	}

	switch g.Applicability {
	case models.ApplicabilitySpecific:
		if !found {
			g.Applicability = models.ApplicabilityMostApplicable
		}
	case models.ApplicabilityMostApplicable, models.ApplicabilityNone:
	default:
		if found {
			g.Applicability = models.ApplicabilityMostApplicable
		} else {
			g.Applicability = models.ApplicabilityNone
		}
	}

	return g
}

func fallbackGuideline(primary []guidelines.Document) *models.Guideline {
	if len(primary) == 0 {
		return &models.Guideline{
			Title:         noGuidelineTitle,
			Summary:       noGuidelineSummary,
			Applicability: models.ApplicabilityNone,
		}
	}

	doc := primary[0]
	return &models.Guideline{
		Title:         doc.Title,
		Summary:       "Closest matching local guideline for this question.",
		URL:           doc.Link,
		Applicability: models.ApplicabilityMostApplicable,
	}
}

func lookupByTitle(title string, docs []guidelines.Document) (guidelines.Document, bool) {
	want := guidelines.NormalizeTitle(title)
	for _, doc := range docs {
		if guidelines.NormalizeTitle(doc.Title) == want {
			return doc, true
		}
	}
	return guidelines.Document{}, false
}

func enrichNational(section *models.NationalSection, adjustedQuery string) *models.NationalSection {
	if section == nil {
		section = &models.NationalSection{}
	}

	if !validURL(section.CKSLink) {
		section.CKSLink = cksSearchURL + url.QueryEscape(adjustedQuery)
	}

	if section.DecisionTree == nil {
		section.DecisionTree = []models.Step{}
	}
	if section.AdmissionCriteria == nil {
		section.AdmissionCriteria = []string{}
	}
	if section.RecommendedInvestigations == nil {
		section.RecommendedInvestigations = []string{}
	}
	if section.RecommendedManagement == nil {
		section.RecommendedManagement = []string{}
	}

	return section
}

func validURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
