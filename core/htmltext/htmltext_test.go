package htmltext

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"paragraphs", `<p>hello</p><p>world</p>`, "hello\n\nworld"},
		{"ordered list", `<ol><li>hello 2</li><li>world</li></ol>`, "1. hello 2\n2. world"},
		{"unordered list", `<ul><li>apples</li><li>pears</li></ul>`, "• apples\n• pears"},
		{"nested inline", `<p>Hello <b>brave</b> <i>new</i> world.</p>`, "Hello brave new world."},
		{"whitespace between blocks", "<p>a</p>\n\n  <p>b</p>", "a\n\nb"},
		{"scripts dropped", `<div>text<script>alert(1)</script><style>p{}</style></div>`, "text"},
		{"line break", `<p>one<br>two</p>`, "one\ntwo"},
		{"list prefix skips blank nodes", "<ol>\n <li>\n  <p>first</p></li></ol>", "1. first"},
		{"two ordered lists restart", `<ol><li>a</li></ol><ol><li>b</li></ol>`, "1. a\n1. b"},
		{"heading", `<h1>Title</h1><p>Body</p>`, "Title\n\nBody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToText(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	hits int
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if ok {
		m.hits++
	}
	return v, ok
}

func (m *mapCache) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func TestConverter_TextUsesCache(t *testing.T) {
	cache := &mapCache{data: map[string]string{}}
	c := NewConverter(cache)
	ctx := context.Background()

	first, err := c.Text(ctx, `<p>hello</p><p>world</p>`)
	require.NoError(t, err)
	assert.Equal(t, "hello\n\nworld", first)
	assert.Zero(t, cache.hits)

	second, err := c.Text(ctx, `<p>hello</p><p>world</p>`)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)
	assert.Len(t, cache.data, 1)
}

func TestConverter_NilCache(t *testing.T) {
	c := NewConverter(nil)
	text, err := c.Text(context.Background(), `<p>x</p>`)
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestSanitize(t *testing.T) {
	c := NewConverter(nil)
	out := c.Sanitize(`<p onclick="steal()">Hi <a href="javascript:alert(1)">x</a><script>alert(1)</script><img src="https://img.local/a.png"></p>`)

	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "Hi")
	assert.Contains(t, out, `src="https://img.local/a.png"`)
}
