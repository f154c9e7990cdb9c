// Package transcript keeps a scrolling transcript in step with audio playback.
//
// Synchronizer is the tested model of the player's autoscroll rules. The
// browser player in server/templates/listen.html is a hand-kept JavaScript
// copy of OnTimeUpdate, JumpToCurrent and Seek; change both together. The
// server itself only calls Active, to pre-highlight the first sentence.
package transcript

// Rect is a vertical extent in scroll-container coordinates.
type Rect struct {
	Top    float64
	Bottom float64
}

// Overlaps reports whether r and o share any vertical range.
func (r Rect) Overlaps(o Rect) bool {
	return r.Top < o.Bottom && r.Bottom > o.Top
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.Top >= r.Top && o.Bottom <= r.Bottom
}

// Align 滚动对齐方式
type Align int

const (
	AlignNearest Align = iota
	AlignCenter
)

// Item is one rendered sentence.
type Item interface {
	AudioOffset() int64 // ms
	Duration() int64    // ms
	Bounds() Rect
	SetActive(active bool)
}

// Scroller is the scrolling container holding the sentence items.
type Scroller interface {
	Items() []Item
	Viewport() Rect
	ScrollIntoView(item Item, align Align)
}

// Player is the media element driving the transcript.
type Player interface {
	CurrentTimeMs() int64
	SetCurrentTimeMs(ms int64)
}

// Span is the timing of a manifest entry.
type Span struct {
	AudioOffset int64
	Duration    int64
}

// Active returns the index of the first span containing timeMs, or -1 when
// timeMs falls in a gap. Overlapping spans resolve to the earliest entry.
func Active(spans []Span, timeMs int64) int {
	for i, s := range spans {
		if timeMs >= s.AudioOffset && timeMs < s.AudioOffset+s.Duration {
			return i
		}
	}
	return -1
}

// Synchronizer 根据播放时间高亮当前句子并控制自动滚动
type Synchronizer struct {
	scroller Scroller
	player   Player

	items   []Item
	spans   []Span
	indexed bool

	current Item
	// last 是最近一次高亮的句子，停顿间隙中不会清空
	last  Item
	armed bool
}

// New returns a synchronizer with autoscroll armed.
func New(scroller Scroller, player Player) *Synchronizer {
	return &Synchronizer{scroller: scroller, player: player, armed: true}
}

// Reset drops the item index and active sentence and re-arms autoscroll.
func (s *Synchronizer) Reset() {
	if s.current != nil {
		s.current.SetActive(false)
	}
	s.items, s.spans, s.indexed = nil, nil, false
	s.current, s.last = nil, nil
	s.armed = true
}

// Armed reports whether autoscroll will follow the next sentence change.
func (s *Synchronizer) Armed() bool {
	return s.armed
}

// Current returns the highlighted item, or nil.
func (s *Synchronizer) Current() Item {
	return s.current
}

// index 首次使用时构建，之后只在 Reset 时失效
func (s *Synchronizer) index() bool {
	if s.indexed {
		return true
	}
	items := s.scroller.Items()
	if len(items) == 0 {
		return false
	}
	s.items = items
	s.spans = make([]Span, len(items))
	for i, it := range items {
		s.spans[i] = Span{AudioOffset: it.AudioOffset(), Duration: it.Duration()}
	}
	s.indexed = true
	return true
}

func (s *Synchronizer) itemAt(timeMs int64) Item {
	if !s.index() {
		return nil
	}
	if i := Active(s.spans, timeMs); i >= 0 {
		return s.items[i]
	}
	return nil
}

// OnTimeUpdate handles a media time update.
func (s *Synchronizer) OnTimeUpdate(timeMs int64) {
	if !s.index() {
		return
	}
	next := s.itemAt(timeMs)
	if next == s.current {
		return
	}

	prev := s.current
	if prev != nil {
		prev.SetActive(false)
	}
	if next != nil {
		next.SetActive(true)
	}
	s.current = next

	viewport := s.scroller.Viewport()
	if !s.armed && (s.last == nil || !s.last.Bounds().Overlaps(viewport)) {
		s.armed = true
	}
	if next != nil {
		s.last = next
	}
	if s.armed && next != nil && !viewport.Contains(next.Bounds()) {
		s.scroller.ScrollIntoView(next, AlignNearest)
		s.armed = false
	}
}

// JumpToCurrent centers the sentence under the playhead, ignoring autoscroll state.
func (s *Synchronizer) JumpToCurrent() {
	if item := s.itemAt(s.player.CurrentTimeMs()); item != nil {
		s.scroller.ScrollIntoView(item, AlignCenter)
	}
}

// Seek moves the playhead by deltaMs, never before the start.
func (s *Synchronizer) Seek(deltaMs int64) {
	target := s.player.CurrentTimeMs() + deltaMs
	if target < 0 {
		target = 0
	}
	s.player.SetCurrentTimeMs(target)
}
