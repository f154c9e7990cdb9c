// Package htmltext turns bookmarked article HTML into speakable text and into
// HTML that is safe to embed in the reader page.
package htmltext

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"homereader/logger"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const bullet = "• "

// TextCache memoizes conversions keyed by a digest of the source HTML.
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Converter 带缓存的 HTML 转文本
type Converter struct {
	cache  TextCache
	policy *bluemonday.Policy
}

// NewConverter creates a converter. cache may be nil.
func NewConverter(cache TextCache) *Converter {
	return &Converter{cache: cache, policy: bluemonday.UGCPolicy()}
}

// Text returns the speakable text of htmlContent, using the cache when possible.
func (c *Converter) Text(ctx context.Context, htmlContent string) (string, error) {
	key := cacheKey(htmlContent)
	if c.cache != nil {
		if text, ok := c.cache.Get(ctx, key); ok {
			return text, nil
		}
	}

	text, err := ToText(htmlContent)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, text)
	}
	logger.Debug("[htmltext] 转换完成", logger.Int("htmlLength", len(htmlContent)), logger.Int("textLength", len(text)))
	return text, nil
}

// Sanitize strips scripts, handlers and other unsafe markup.
func (c *Converter) Sanitize(htmlContent string) string {
	return c.policy.Sanitize(htmlContent)
}

func cacheKey(htmlContent string) string {
	sum := sha256.Sum256([]byte(htmlContent))
	return "htmltext:" + hex.EncodeToString(sum[:])
}

// ToText renders an HTML document or fragment to plain text the way a browser
// would lay it out, prefixing list items with "1. " (ordered) or "• ".
func ToText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	w := &textWalker{counters: make(map[*html.Node]int)}
	w.walk(doc)
	return w.result(), nil
}

// 每个片段要么是文本，要么是所需的最少换行数
type chunk struct {
	text   string
	breaks int
}

type textWalker struct {
	chunks        []chunk
	counters      map[*html.Node]int
	pendingPrefix string
}

var skipped = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
	atom.Noscript: true, atom.Iframe: true, atom.Svg: true, atom.Button: true,
}

var paragraphLike = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

var blockLike = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
	atom.Body: true, atom.Html: true,
}

func (w *textWalker) requireBreaks(n int) {
	w.chunks = append(w.chunks, chunk{breaks: n})
}

func (w *textWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	if n.Type != html.ElementNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		return
	}

	switch n.DataAtom {
	case atom.Br:
		w.chunks = append(w.chunks, chunk{text: "\n"})
		return
	case atom.Ol:
		w.counters[n] = 0
	case atom.Li:
		w.startListItem(n)
	}

	breaks := 0
	switch {
	case paragraphLike[n.DataAtom]:
		breaks = 2
	case blockLike[n.DataAtom]:
		breaks = 1
	}

	if breaks > 0 {
		w.requireBreaks(breaks)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if breaks > 0 {
		w.requireBreaks(breaks)
	}
}

func (w *textWalker) startListItem(n *html.Node) {
	parent := n.Parent
	if parent != nil && parent.DataAtom == atom.Ol {
		w.counters[parent]++
		w.pendingPrefix = strconv.Itoa(w.counters[parent]) + ". "
		return
	}
	w.pendingPrefix = bullet
}

func (w *textWalker) text(n *html.Node) {
	value := n.Data
	if !insidePre(n) {
		value = strings.Join(strings.Fields(value), " ")
		if value == "" {
			// 纯空白节点在行内元素之间保留一个空格
			if n.Data != "" {
				w.chunks = append(w.chunks, chunk{text: " "})
			}
			return
		}
		if startsWithSpace(n.Data) {
			value = " " + value
		}
		if endsWithSpace(n.Data) {
			value += " "
		}
	}

	if w.pendingPrefix != "" && strings.TrimSpace(value) != "" {
		value = w.pendingPrefix + strings.TrimLeft(value, " ")
		w.pendingPrefix = ""
	}
	w.chunks = append(w.chunks, chunk{text: value})
}

func insidePre(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Pre {
			return true
		}
	}
	return false
}

func startsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\n\r\f", rune(s[0]))
}

func endsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\n\r\f", rune(s[len(s)-1]))
}

// result 合并相邻的换行要求，去掉首尾空白
func (w *textWalker) result() string {
	var b strings.Builder
	pending := 0
	started := false

	for _, c := range w.chunks {
		if c.text == "" {
			if c.breaks > pending {
				pending = c.breaks
			}
			continue
		}
		collapsible := c.text != "\n" && strings.TrimSpace(c.text) == ""
		if collapsible && (!started || pending > 0) {
			continue
		}
		if !started {
			started = true
			pending = 0
		}
		if pending > 0 {
			b.WriteString(strings.Repeat("\n", pending))
			pending = 0
		}
		b.WriteString(c.text)
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
