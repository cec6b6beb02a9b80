// Package extract turns a rendered profile page into ordered items.
package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/monitor"
)

// Default selectors for the profile timeline.
const (
	DefaultUnitSelector = `[data-testid="tweet"]`
	DefaultLinkSelector = `a[href*="/status/"]`
	DefaultTextSelector = `div[lang]`
	DefaultMaxItems     = 5
)

var statusIDPattern = regexp.MustCompile(`status/(\d+)`)

// Config selects content units and their parts.
type Config struct {
	UnitSelector string
	LinkSelector string
	TextSelector string
	MaxItems     int
}

// Extractor implements monitor.Extractor with goquery.
type Extractor struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an extractor, filling unset selectors with defaults.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.UnitSelector == "" {
		cfg.UnitSelector = DefaultUnitSelector
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = DefaultLinkSelector
	}
	if cfg.TextSelector == "" {
		cfg.TextSelector = DefaultTextSelector
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Marker is the selector whose presence means the page has rendered.
func (e *Extractor) Marker() string {
	return e.cfg.UnitSelector
}

// Extract returns at most MaxItems items in document order. Units without a
// status link get an empty ID; units without text get empty text. Unparseable
// input yields no items.
func (e *Extractor) Extract(body []byte) []monitor.Item {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.logger.Warn("parse rendered page", zap.Error(err))
		return nil
	}

	units := doc.Find(e.cfg.UnitSelector)
	items := make([]monitor.Item, 0, min(units.Length(), e.cfg.MaxItems))
	units.EachWithBreak(func(_ int, unit *goquery.Selection) bool {
		if len(items) >= e.cfg.MaxItems {
			return false
		}
		item := monitor.Item{
			ID:   e.unitID(unit),
			Text: e.unitText(unit),
		}
		if !item.HasID() {
			e.logger.Debug("unit without status link", zap.Int("index", len(items)))
		}
		items = append(items, item)
		return true
	})
	return items
}

func (e *Extractor) unitID(unit *goquery.Selection) string {
	var id string
	unit.Find(e.cfg.LinkSelector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		if m := statusIDPattern.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	return id
}

func (e *Extractor) unitText(unit *goquery.Selection) string {
	var segments []string
	unit.Find(e.cfg.TextSelector).Each(func(_ int, seg *goquery.Selection) {
		var b strings.Builder
		for _, n := range seg.Nodes {
			renderText(&b, n)
		}
		segments = append(segments, b.String())
	})
	return strings.Join(segments, "\n")
}

// renderText approximates innerText: text nodes verbatim, <br> as newline
// and emoji images by their alt text.
func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "img":
			for _, attr := range n.Attr {
				if attr.Key == "alt" {
					b.WriteString(attr.Val)
				}
			}
			return
		case "script", "style":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
}
