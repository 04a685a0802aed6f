package models

// Applicability grades how well a local guideline covers the question asked.
type Applicability string

const (
	ApplicabilitySpecific       Applicability = "specific"
	ApplicabilityMostApplicable Applicability = "most_applicable"
	ApplicabilityNone           Applicability = "none"
)

// InclusionFlags select which sections of the answer a caller wants.
// The HTTP layer treats absent flags as true.
type InclusionFlags struct {
	Local      bool
	National   bool
	Literature bool
}

// Step is one IF/THEN branch of a decision tree.
type Step struct {
	If   string `json:"if"`
	Then string `json:"then"`
	Note string `json:"note,omitempty"`
}

// Link points at a locally served guideline document.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Guideline describes the single local document the answer is built around.
// URL is omitted entirely for the "no applicable guideline" sentinel so that
// every URL present in a response is non-empty.
type Guideline struct {
	Title         string        `json:"title"`
	Summary       string        `json:"summary"`
	URL           string        `json:"url,omitempty"`
	Applicability Applicability `json:"applicability"`
}

type LocalSection struct {
	Guideline                 *Guideline `json:"guideline,omitempty"`
	DecisionTree              []Step     `json:"decision_tree"`
	AdmissionCriteria         []string   `json:"admission_criteria"`
	RecommendedInvestigations []string   `json:"recommended_investigations"`
	RecommendedManagement     []string   `json:"recommended_management"`
	Links                     []Link     `json:"links"`
}

type NationalSection struct {
	DecisionTree              []Step   `json:"decision_tree"`
	NICESummary               string   `json:"nice_summary"`
	AdmissionCriteria         []string `json:"admission_criteria"`
	RecommendedInvestigations []string `json:"recommended_investigations"`
	RecommendedManagement     []string `json:"recommended_management"`
	CKSLink                   string   `json:"cks_link"`
}

// LiteratureEntry is one published paper: title, a summary trimmed to at most
// two sentences, and the public article URL.
type LiteratureEntry struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

type LiteratureSection struct {
	Papers []LiteratureEntry `json:"papers"`
}

// ModelAnswer is the shape the generation model is asked to produce. It is
// decoded straight from model output and is untrusted until enrichment.
type ModelAnswer struct {
	Summary  string           `json:"summary"`
	Local    *LocalSection    `json:"local,omitempty"`
	National *NationalSection `json:"national,omitempty"`
}

// StructuredAnswer is the merged response returned to the caller. Sections the
// request did not ask for are nil and absent from the JSON encoding, not empty.
type StructuredAnswer struct {
	Summary             string             `json:"summary"`
	Local               *LocalSection      `json:"local,omitempty"`
	National            *NationalSection   `json:"national,omitempty"`
	PublishedLiterature *LiteratureSection `json:"published_literature,omitempty"`
}
