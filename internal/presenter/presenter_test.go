package presenter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/BharatPulse/internal/collector"
	"github.com/LJTian/BharatPulse/internal/processor"
	"github.com/LJTian/BharatPulse/internal/translate"
)

func headline(title string, translated *string, status translate.Status) processor.Headline {
	return processor.Headline{
		ID:                "id",
		Source:            "Sakshi",
		Article:           collector.Article{Title: title, Link: "https://e.com/a", Published: "N/A"},
		TranslatedTitle:   translated,
		TranslationStatus: status,
	}
}

func ptr(s string) *string { return &s }

func TestNewCardDisplayTitle(t *testing.T) {
	cases := []struct {
		name     string
		h        processor.Headline
		title    string
		original string
	}{
		{"translated", headline("Rain", ptr("వర్షం"), translate.StatusTranslated), "వర్షం", "Rain"},
		{"same text", headline("IPL", ptr("IPL"), translate.StatusTranslated), "IPL", ""},
		{"failed", headline("Rain", ptr(translate.Failed), translate.StatusFailed), "Rain", ""},
		{"unavailable", headline("Rain", ptr(translate.Unavailable), translate.StatusUnavailable), "Rain", ""},
		{"skipped", headline("వర్షం", ptr("వర్షం"), translate.StatusSkipped), "వర్షం", ""},
		{"pending", headline("Rain", nil, translate.StatusPending), "Rain", ""},
	}
	for _, c := range cases {
		card := NewCard(c.h)
		assert.Equal(t, c.title, card.Title, c.name)
		assert.Equal(t, c.original, card.OriginalTitle, c.name)
	}
}

func cards(n int) []Card {
	out := make([]Card, n)
	for i := range out {
		out[i] = Card{ID: fmt.Sprint(i)}
	}
	return out
}

func TestPaginate(t *testing.T) {
	p := Paginate(cards(14), 2, 6)
	assert.Equal(t, 14, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	require.Len(t, p.Items, 6)
	assert.Equal(t, "6", p.Items[0].ID)
	require.Len(t, p.Rows, 2)
	assert.Len(t, p.Rows[0], 3)

	last := Paginate(cards(14), 3, 6)
	require.Len(t, last.Items, 2)
	require.Len(t, last.Rows, 1)
	assert.Len(t, last.Rows[0], 2)
}

func TestPaginateDefaultsAndBounds(t *testing.T) {
	p := Paginate(cards(5), 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultSize, p.Size)
	assert.Len(t, p.Items, 5)

	assert.Equal(t, MaxSize, Paginate(cards(1), 1, 1000).Size)

	beyond := Paginate(cards(5), 4, 3)
	assert.Empty(t, beyond.Items)
	assert.Empty(t, beyond.Rows)
	assert.Equal(t, 2, beyond.TotalPages)

	empty := Paginate(nil, 1, 3)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestGrid(t *testing.T) {
	rows := Grid(cards(7), 3)
	require.Len(t, rows, 3)
	assert.Len(t, rows[2], 1)
	assert.Empty(t, Grid(nil, 3))
}

func TestLookupCategory(t *testing.T) {
	name, ok := LookupCategory("క్రీడలు")
	assert.True(t, ok)
	assert.Equal(t, "Sports", name)

	name, ok = LookupCategory("politics")
	assert.True(t, ok)
	assert.Equal(t, "Politics", name)

	_, ok = LookupCategory("Astrology")
	assert.False(t, ok)
	assert.Len(t, Categories, 10)
}
