package presenter

import (
	"github.com/LJTian/BharatPulse/internal/collector"
	"github.com/LJTian/BharatPulse/internal/processor"
	"github.com/LJTian/BharatPulse/internal/translate"
)

const (
	Columns     = 3
	DefaultSize = 12
	MaxSize     = 60
)

// Card 一张新闻卡片
type Card struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title,omitempty"`
	Link          string `json:"link"`
	Summary       string `json:"summary"`
	Published     string `json:"published"`
	ImageURL      string `json:"image_url,omitempty"`
	Source        string `json:"source"`
	Category      string `json:"category,omitempty"`

	TranslationStatus translate.Status      `json:"translation_status"`
	ImageStatus       collector.FieldStatus `json:"image_status"`
	SummaryStatus     collector.FieldStatus `json:"summary_status"`
}

// NewCard 只有成功且与原文不同的译文才作为展示标题，原标题放进 OriginalTitle
func NewCard(h processor.Headline) Card {
	c := Card{
		ID:                h.ID,
		Title:             h.Title,
		Link:              h.Link,
		Summary:           h.Summary,
		Published:         h.Published,
		ImageURL:          h.ImageURL,
		Source:            h.Source,
		Category:          h.Category,
		TranslationStatus: h.TranslationStatus,
		ImageStatus:       h.ImageStatus,
		SummaryStatus:     h.SummaryStatus,
	}
	if h.TranslationStatus == translate.StatusTranslated && h.TranslatedTitle != nil &&
		*h.TranslatedTitle != "" && *h.TranslatedTitle != h.Title {
		c.Title = *h.TranslatedTitle
		c.OriginalTitle = h.Title
	}
	return c
}

func Cards(hs []processor.Headline) []Card {
	out := make([]Card, 0, len(hs))
	for _, h := range hs {
		out = append(out, NewCard(h))
	}
	return out
}

type Page struct {
	Items      []Card   `json:"items"`
	Rows       [][]Card `json:"rows"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
}

// Paginate page 从 1 开始；越界的页返回空列表
func Paginate(cards []Card, page, size int) Page {
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	if page < 1 {
		page = 1
	}

	total := len(cards)
	p := Page{
		Items:      []Card{},
		Rows:       [][]Card{},
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}

	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := start + size
	if end > total {
		end = total
	}
	p.Items = cards[start:end]
	p.Rows = Grid(p.Items, Columns)
	return p
}

// Grid 按列数切成行，最后一行可以不满
func Grid(cards []Card, cols int) [][]Card {
	if cols <= 0 {
		cols = Columns
	}
	rows := make([][]Card, 0, (len(cards)+cols-1)/cols)
	for i := 0; i < len(cards); i += cols {
		end := i + cols
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, cards[i:end])
	}
	return rows
}
