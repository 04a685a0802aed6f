package guidelines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guideline-agent/backend/internal/audience"
)

func writeGuidelines(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0644)
		require.NoError(t, err)
	}
	return dir
}

func TestListMissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"), "/guidelines")
	assert.Empty(t, store.List())
}

func TestListSkipsNonGuidelineEntries(t *testing.T) {
	dir := writeGuidelines(t, "sepsis_bundle_ocr.pdf", ".DS_Store", "readme.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

	store := NewStore(dir, "/guidelines")
	docs := store.List()

	require.Len(t, docs, 1)
	assert.Equal(t, "sepsis_bundle_ocr.pdf", docs[0].FileName)
	assert.Equal(t, "Sepsis Bundle", docs[0].Title)
	assert.Equal(t, "/guidelines/sepsis_bundle_ocr.pdf", docs[0].Link)
	assert.Equal(t, audience.Adult, docs[0].Audience)
}

func TestMatch(t *testing.T) {
	dir := writeGuidelines(t,
		"asthma_pathway_ocr.pdf",
		"paediatric_asthma_guideline_ocr.pdf",
		"sepsis_bundle_ocr.pdf",
	)
	store := NewStore(dir, "/guidelines")

	t.Run("or semantics across tokens", func(t *testing.T) {
		result := store.Match("asthma exacerbation", audience.Adult)

		require.Len(t, result.All, 2)
		assert.Equal(t, "asthma_pathway_ocr.pdf", result.All[0].FileName)
		assert.Equal(t, "paediatric_asthma_guideline_ocr.pdf", result.All[1].FileName)

		require.Len(t, result.Primary, 1)
		assert.Equal(t, "asthma_pathway_ocr.pdf", result.Primary[0].FileName)
		assert.Equal(t, []string{"Asthma Pathway"}, result.PrimaryTitles())
	})

	t.Run("primary follows the request audience", func(t *testing.T) {
		result := store.Match("asthma in a child", audience.Paediatric)

		require.Len(t, result.Primary, 1)
		assert.Equal(t, "paediatric_asthma_guideline_ocr.pdf", result.Primary[0].FileName)
	})

	t.Run("empty query matches nothing", func(t *testing.T) {
		result := store.Match("   ", audience.Adult)
		assert.Empty(t, result.All)
		assert.Empty(t, result.Primary)
	})

	t.Run("no token matches", func(t *testing.T) {
		result := store.Match("anaphylaxis", audience.Adult)
		assert.Empty(t, result.All)
	})
}

func TestTitleFromFileName(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"asthma_pathway_ocr.pdf", "Asthma Pathway"},
		{"sepsis_bundle.pdf", "Sepsis Bundle"},
		{"COPD_discharge_ocr.pdf", "Copd Discharge"},
		{"head_injury_ocr.pdf", "Head Injury"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFromFileName(tt.fileName), tt.fileName)
	}
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "asthmapathway", NormalizeTitle("Asthma  Pathway"))
	assert.Equal(t, "asthmapathway", NormalizeTitle("asthma_pathway"))
	assert.Equal(t, "copddischarge", NormalizeTitle("COPD - discharge!"))

	for _, s := range []string{"Asthma Pathway", "pre-eclampsia (2024)", ""} {
		once := NormalizeTitle(s)
		assert.Equal(t, once, NormalizeTitle(once), s)
	}
}
