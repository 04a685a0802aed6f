package prompt

import (
	"strings"

	"github.com/guideline-agent/backend/internal/audience"
	"github.com/guideline-agent/backend/internal/models"
)

// priorityRule is included verbatim so the model orders its narrative the
// same way every time.
const priorityRule = "Priority of sources: Local → National. Local guidance takes precedence where the two differ."

// AdjustQuery appends " in adults" to adult-audience queries so the model
// does not drift to paediatric advice when the question names no age group.
// Paediatric and pregnancy queries pass through unchanged.
func AdjustQuery(query string, aud audience.Audience) string {
	if aud == audience.Adult {
		return query + " in adults"
	}
	return query
}

// Compose builds the full generation prompt: question, audience, candidate
// guideline titles, the response schema allowed by flags, and the rules
// block. The schema shrinks to {"summary"} when neither the local nor the
// national section is requested.
func Compose(query string, candidateTitles []string, flags models.InclusionFlags, aud audience.Audience) string {
	var b strings.Builder

	b.WriteString("You are a clinical decision support assistant for hospital clinicians.\n")
	b.WriteString("Answer the clinical question below against current UK practice.\n\n")

	b.WriteString("Question: ")
	b.WriteString(AdjustQuery(query, aud))
	b.WriteString("\nAudience: ")
	b.WriteString(string(aud))
	b.WriteString("\n")

	if flags.Local {
		writeCandidates(&b, candidateTitles)
	}

	b.WriteString("\nRespond with a single JSON object of exactly this shape:\n")
	b.WriteString(responseSchema(flags))
	b.WriteString("\n\nRules:\n")
	for _, rule := range rules(flags) {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}

	return b.String()
}

func writeCandidates(b *strings.Builder, titles []string) {
	if len(titles) == 0 {
		b.WriteString("\nNo local guidelines matched this question. Set local.guideline.applicability to \"none\".\n")
		return
	}
	b.WriteString("\nCandidate local guidelines, choose local.guideline.title from this list only:\n")
	for _, title := range titles {
		b.WriteString("- ")
		b.WriteString(title)
		b.WriteString("\n")
	}
}

func responseSchema(flags models.InclusionFlags) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString(`  "summary": "one paragraph answering the question"`)

	if flags.Local {
		b.WriteString(",\n")
		b.WriteString(`  "local": {
    "guideline": {"title": "...", "summary": "...", "url": "...", "applicability": "specific|most_applicable|none"},
    "decision_tree": [{"if": "...", "then": "...", "note": "..."}],
    "admission_criteria": ["..."],
    "recommended_investigations": ["..."],
    "recommended_management": ["..."],
    "links": [{"title": "...", "url": "..."}]
  }`)
	}

	if flags.National {
		b.WriteString(",\n")
		b.WriteString(`  "national": {
    "decision_tree": [{"if": "...", "then": "...", "note": "..."}],
    "nice_summary": "...",
    "admission_criteria": ["..."],
    "recommended_investigations": ["..."],
    "recommended_management": ["..."],
    "cks_link": "..."
  }`)
	}

	b.WriteString("\n}")
	return b.String()
}

func rules(flags models.InclusionFlags) []string {
	out := []string{
		"Output must be strictly valid JSON. No markdown, no code fences, no commentary before or after the JSON.",
		priorityRule,
	}

	if flags.Local {
		out = append(out,
			`Set local.guideline.applicability to "specific" only when a candidate guideline covers exactly this presentation, "most_applicable" when a candidate is the closest fit without covering it exactly, and "none" when no candidate applies.`,
			"local.decision_tree must contain 2 to 6 IF/THEN steps.",
			"local.admission_criteria must list concrete thresholds for admission.",
		)
	}

	if flags.National {
		out = append(out,
			"Base the national section on current NICE and CKS guidance; nice_summary must summarise that guidance.",
			"national.decision_tree must contain 2 to 6 IF/THEN steps and national.admission_criteria must list concrete thresholds for admission.",
			"Set national.cks_link to the most relevant NICE CKS page for this question.",
		)
	}

	return out
}
