package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"bracescarebot/internal/models"

	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCorpus(t, `[
		{"topic": "Retainer care", "keywords": ["retainer"], "content": "Clean daily.", "tips": ["Use cool water"]},
		{"topic": "Braces discomfort", "keywords": ["pain", "sore"], "content": "Soreness fades in days."}
	]`)

	kb, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, kb.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeCorpus(t, `{"not": "an array"`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EmptyCorpus(t *testing.T) {
	path := writeCorpus(t, `[]`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EntryWithoutKeywords(t *testing.T) {
	path := writeCorpus(t, `[{"topic": "Wax", "keywords": [], "content": "x"}]`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLookup_CaseInsensitiveRoundTrip(t *testing.T) {
	kb := New([]models.KnowledgeEntry{
		{Topic: "Retainer care", Keywords: []string{"retainer"}, Content: "Clean daily."},
	})

	matched := kb.Lookup("How do I clean my Retainer?")
	require.Len(t, matched, 1)
	require.Equal(t, "Retainer care", matched[0].Topic)
}

func TestLookup_CorpusOrderStable(t *testing.T) {
	kb := New([]models.KnowledgeEntry{
		{Topic: "first", Keywords: []string{"wire"}, Content: "a"},
		{Topic: "second", Keywords: []string{"bracket"}, Content: "b"},
		{Topic: "third", Keywords: []string{"wax"}, Content: "c"},
	})

	matched := kb.Lookup("my bracket broke and the wire needs wax")
	require.Len(t, matched, 3)
	require.Equal(t, "first", matched[0].Topic)
	require.Equal(t, "second", matched[1].Topic)
	require.Equal(t, "third", matched[2].Topic)
}

func TestLookup_NoMatchYieldsEmpty(t *testing.T) {
	kb := New([]models.KnowledgeEntry{
		{Topic: "Retainer care", Keywords: []string{"retainer"}, Content: "Clean daily."},
	})

	require.Empty(t, kb.Lookup("what is the meaning of life"))
}

func TestLookup_EntryMatchedOncePerMessage(t *testing.T) {
	kb := New([]models.KnowledgeEntry{
		{Topic: "Elastics", Keywords: []string{"elastic", "rubber band"}, Content: "Wear full time."},
	})

	matched := kb.Lookup("my elastic rubber band snapped")
	require.Len(t, matched, 1)
}
