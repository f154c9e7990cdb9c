package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItem struct {
	offset, duration int64
	top, height      float64
	active           bool
}

func (f *fakeItem) AudioOffset() int64 { return f.offset }
func (f *fakeItem) Duration() int64    { return f.duration }
func (f *fakeItem) Bounds() Rect       { return Rect{Top: f.top, Bottom: f.top + f.height} }
func (f *fakeItem) SetActive(a bool)   { f.active = a }

type scrollCall struct {
	item  Item
	align Align
}

type fakeScroller struct {
	items      []Item
	viewport   Rect
	calls      []scrollCall
	itemsCalls int
}

func (f *fakeScroller) Items() []Item {
	f.itemsCalls++
	return f.items
}

func (f *fakeScroller) Viewport() Rect { return f.viewport }

func (f *fakeScroller) ScrollIntoView(item Item, align Align) {
	f.calls = append(f.calls, scrollCall{item, align})
	b := item.Bounds()
	height := f.viewport.Bottom - f.viewport.Top
	switch align {
	case AlignCenter:
		mid := (b.Top + b.Bottom) / 2
		f.viewport = Rect{Top: mid - height/2, Bottom: mid + height/2}
	default:
		if b.Bottom > f.viewport.Bottom {
			f.viewport = Rect{Top: b.Bottom - height, Bottom: b.Bottom}
		} else if b.Top < f.viewport.Top {
			f.viewport = Rect{Top: b.Top, Bottom: b.Top + height}
		}
	}
}

type fakePlayer struct{ ms int64 }

func (p *fakePlayer) CurrentTimeMs() int64      { return p.ms }
func (p *fakePlayer) SetCurrentTimeMs(ms int64) { p.ms = ms }

// 每句 1 秒，高 30，容器可见高度 100
func newFixture(n int) (*fakeScroller, []*fakeItem) {
	scroller := &fakeScroller{viewport: Rect{Top: 0, Bottom: 100}}
	items := make([]*fakeItem, n)
	for i := range items {
		items[i] = &fakeItem{offset: int64(i) * 1000, duration: 1000, top: float64(i) * 30, height: 30}
		scroller.items = append(scroller.items, items[i])
	}
	return scroller, items
}

func TestActive(t *testing.T) {
	spans := []Span{{AudioOffset: 0, Duration: 1000}, {AudioOffset: 1000, Duration: 1500}}

	assert.Equal(t, 0, Active(spans, 500))
	assert.Equal(t, 1, Active(spans, 1000))
	assert.Equal(t, -1, Active(spans, 2600))
	assert.Equal(t, -1, Active(nil, 0))
}

func TestActive_GapAndOverlap(t *testing.T) {
	spans := []Span{{AudioOffset: 0, Duration: 1000}, {AudioOffset: 1500, Duration: 500}}
	assert.Equal(t, -1, Active(spans, 1200))

	// 重叠时取第一个匹配
	overlapping := []Span{{AudioOffset: 0, Duration: 2000}, {AudioOffset: 1000, Duration: 2000}}
	assert.Equal(t, 0, Active(overlapping, 1500))
}

func TestOnTimeUpdate_Highlight(t *testing.T) {
	scroller, items := newFixture(3)
	s := New(scroller, &fakePlayer{})

	s.OnTimeUpdate(500)
	assert.True(t, items[0].active)
	assert.Same(t, items[0], s.Current())

	s.OnTimeUpdate(1200)
	assert.False(t, items[0].active)
	assert.True(t, items[1].active)

	// 超出最后一句，没有高亮
	s.OnTimeUpdate(9000)
	assert.False(t, items[1].active)
	assert.Nil(t, s.Current())

	assert.Empty(t, scroller.calls)
	assert.Equal(t, 1, scroller.itemsCalls)
}

func TestOnTimeUpdate_NoItemsYet(t *testing.T) {
	scroller := &fakeScroller{viewport: Rect{Bottom: 100}}
	s := New(scroller, &fakePlayer{})

	s.OnTimeUpdate(100)
	assert.Nil(t, s.Current())

	// 句子渲染后下一次事件会建立索引
	scroller.items = []Item{&fakeItem{offset: 0, duration: 1000, height: 30}}
	s.OnTimeUpdate(100)
	assert.NotNil(t, s.Current())
}

func TestOnTimeUpdate_AutoscrollDisarmsUntilPreviousLeavesView(t *testing.T) {
	scroller, items := newFixture(8)
	s := New(scroller, &fakePlayer{})

	// item 0..2 fully visible in [0,100]
	for i := 0; i < 3; i++ {
		s.OnTimeUpdate(int64(i)*1000 + 10)
	}
	assert.Empty(t, scroller.calls)
	assert.True(t, s.Armed())

	// item 3 [90,120] is cut off: scroll and disarm
	s.OnTimeUpdate(3010)
	require.Len(t, scroller.calls, 1)
	assert.Same(t, items[3], scroller.calls[0].item)
	assert.Equal(t, AlignNearest, scroller.calls[0].align)
	assert.False(t, s.Armed())
	assert.Equal(t, Rect{Top: 20, Bottom: 120}, scroller.viewport)

	// item 4 is out of view but item 3 still overlaps: no scroll
	s.OnTimeUpdate(4010)
	assert.Len(t, scroller.calls, 1)
	assert.False(t, s.Armed())

	// item 4 [120,150] no longer overlaps [20,120]: re-arm and follow item 5
	s.OnTimeUpdate(5010)
	require.Len(t, scroller.calls, 2)
	assert.Same(t, items[5], scroller.calls[1].item)
}

// 句子之间有 200ms 停顿
func newGappedFixture(n int) (*fakeScroller, []*fakeItem) {
	scroller, items := newFixture(n)
	for _, it := range items {
		it.duration = 800
	}
	return scroller, items
}

func TestOnTimeUpdate_GapKeepsDisarmedWhileLastSentenceVisible(t *testing.T) {
	scroller, items := newGappedFixture(8)
	s := New(scroller, &fakePlayer{})

	s.OnTimeUpdate(3010) // item 3 [90,120] cut off: scroll, disarm
	require.Len(t, scroller.calls, 1)
	require.Equal(t, Rect{Top: 20, Bottom: 120}, scroller.viewport)

	// 停顿：没有高亮，但 item 3 仍在视口内
	s.OnTimeUpdate(3900)
	assert.Nil(t, s.Current())
	assert.False(t, items[3].active)
	assert.False(t, s.Armed())

	// item 4 [120,150] is off screen, item 3 still overlaps: no scroll
	s.OnTimeUpdate(4010)
	assert.Len(t, scroller.calls, 1)
	assert.False(t, s.Armed())

	// item 4 never overlapped [20,120]: after the next gap item 5 is followed
	s.OnTimeUpdate(4900)
	s.OnTimeUpdate(5010)
	require.Len(t, scroller.calls, 2)
	assert.Same(t, items[5], scroller.calls[1].item)
	assert.False(t, s.Armed())
}

func TestOnTimeUpdate_GapAfterResetStartsArmed(t *testing.T) {
	scroller, items := newGappedFixture(8)
	s := New(scroller, &fakePlayer{})

	s.OnTimeUpdate(3010)
	s.Reset()
	s.OnTimeUpdate(3900) // gap right after reset
	s.OnTimeUpdate(6010) // item 6 [180,210] out of view

	require.Len(t, scroller.calls, 2)
	assert.Same(t, items[6], scroller.calls[1].item)
}

func TestOnTimeUpdate_PreviousStillVisibleKeepsDisarmed(t *testing.T) {
	scroller, _ := newFixture(8)
	s := New(scroller, &fakePlayer{})

	s.OnTimeUpdate(3010) // scroll to item 3, disarm
	require.Len(t, scroller.calls, 1)

	// user scrolls down a little; item 3 stays in view while playback moves on
	scroller.viewport = Rect{Top: 60, Bottom: 160}
	s.OnTimeUpdate(4010) // item 4 [120,150] is visible anyway
	s.OnTimeUpdate(5010) // item 5 [150,180] cut off, item 4 still overlaps
	assert.Len(t, scroller.calls, 1)
}

func TestJumpToCurrent(t *testing.T) {
	scroller, items := newFixture(8)
	player := &fakePlayer{ms: 6500}
	s := New(scroller, player)

	s.OnTimeUpdate(3010) // disarm
	require.False(t, s.Armed())

	s.JumpToCurrent()
	require.Len(t, scroller.calls, 2)
	assert.Same(t, items[6], scroller.calls[1].item)
	assert.Equal(t, AlignCenter, scroller.calls[1].align)

	// 处于空隙时不滚动
	player.ms = 60_000
	s.JumpToCurrent()
	assert.Len(t, scroller.calls, 2)
}

func TestSeek(t *testing.T) {
	player := &fakePlayer{ms: 15_000}
	s := New(&fakeScroller{}, player)

	s.Seek(10_000)
	assert.EqualValues(t, 25_000, player.ms)

	s.Seek(-60_000)
	assert.EqualValues(t, 0, player.ms)
}

func TestReset(t *testing.T) {
	scroller, items := newFixture(8)
	s := New(scroller, &fakePlayer{})

	s.OnTimeUpdate(3010)
	require.False(t, s.Armed())

	s.Reset()
	assert.True(t, s.Armed())
	assert.Nil(t, s.Current())
	assert.False(t, items[3].active)

	s.OnTimeUpdate(10)
	assert.Equal(t, 2, scroller.itemsCalls)
}

func TestRect(t *testing.T) {
	vp := Rect{Top: 0, Bottom: 100}
	assert.True(t, vp.Contains(Rect{Top: 0, Bottom: 100}))
	assert.False(t, vp.Contains(Rect{Top: 90, Bottom: 120}))
	assert.True(t, vp.Overlaps(Rect{Top: 90, Bottom: 120}))
	assert.False(t, vp.Overlaps(Rect{Top: 100, Bottom: 130}))
}
