package audience

import "strings"

// Audience is the coarse patient population a question concerns.
type Audience string

const (
	Adult      Audience = "adult"
	Paediatric Audience = "paediatric"
	Pregnancy  Audience = "pregnancy"
)

// Keywords are matched as substrings of the lowercased text, so "pregnan"
// covers pregnant, pregnancy and pregnancies.
var pregnancyKeywords = []string{
	"pregnan",
	"antenatal",
	"postnatal",
	"postpartum",
	"obstetric",
	"trimester",
	"matern",
	"eclampsia",
	"gestation",
	"childbirth",
	"breastfeed",
}

// "kid" is left out: it matches "kidney".
var paediatricKeywords = []string{
	"paediatric",
	"pediatric",
	"child",
	"infant",
	"neonat",
	"newborn",
	"baby",
	"babies",
	"toddler",
	"adolescen",
	"teenage",
}

// Classify tags free text with the audience it concerns. Pregnancy terms win
// over paediatric terms ("childbirth" is pregnancy, not paediatric); text
// matching neither set is Adult.
func Classify(text string) Audience {
	lower := strings.ToLower(text)
	if containsAny(lower, pregnancyKeywords) {
		return Pregnancy
	}
	if containsAny(lower, paediatricKeywords) {
		return Paediatric
	}
	return Adult
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
