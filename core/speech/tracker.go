package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homereader/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Gateway is the vendor side of the pipeline.
type Gateway interface {
	Submit(ctx context.Context, key, text, voice string) (string, error)
	Wait(ctx context.Context, jobID string) (*JobStatus, error)
	FetchAndUnpack(ctx context.Context, resultURL string) (*Output, error)
}

// ObjectStore is the durable storage the tracker writes artifacts to.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Tracker 按内容哈希去重并缓存合成任务
//
// 每个哈希只会创建一次 State，并且同一时间最多运行一个流水线。
// State 在进程生命周期内不会被清理，失败状态也不会自动重试。
type Tracker struct {
	gateway Gateway
	store   ObjectStore
	version string
	now     func() time.Time

	mu     sync.Mutex
	states map[string]*State

	instruments trackerInstruments
}

type trackerInstruments struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	storeHits metric.Int64Counter
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithVersion overrides the pipeline version mixed into the content hash.
func WithVersion(version string) TrackerOption {
	return func(t *Tracker) { t.version = version }
}

// WithClock overrides the time source used for State.Started.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker 创建合成任务追踪器
func NewTracker(gateway Gateway, store ObjectStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		gateway: gateway,
		store:   store,
		version: PipelineVersion,
		now:     time.Now,
		states:  make(map[string]*State),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.initInstruments()
	return t
}

func (t *Tracker) initInstruments() {
	meter := otel.Meter("homereader/speech")

	var err error
	if t.instruments.started, err = meter.Int64Counter("speech.jobs.started",
		metric.WithDescription("Synthesis pipelines started")); err != nil {
		logger.Warn("[speech] 创建指标失败", logger.ErrorField(err))
	}
	if t.instruments.completed, err = meter.Int64Counter("speech.jobs.completed",
		metric.WithDescription("Synthesis pipelines finished, by result")); err != nil {
		logger.Warn("[speech] 创建指标失败", logger.ErrorField(err))
	}
	if t.instruments.storeHits, err = meter.Int64Counter("speech.store.hits",
		metric.WithDescription("Pipelines satisfied by artifacts already in the object store")); err != nil {
		logger.Warn("[speech] 创建指标失败", logger.ErrorField(err))
	}

	pending, err := meter.Int64ObservableGauge("speech.jobs.pending",
		metric.WithDescription("Synthesis states still pending"))
	if err != nil {
		logger.Warn("[speech] 创建指标失败", logger.ErrorField(err))
		return
	}
	if _, err := meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(pending, int64(t.pendingCount()))
		return nil
	}, pending); err != nil {
		logger.Warn("[speech] 注册指标回调失败", logger.ErrorField(err))
	}
}

// HashFor returns the content hash this tracker uses for text and voice.
func (t *Tracker) HashFor(text, voice string) string {
	return Hash(text, voice, t.version)
}

// GetOrStart returns the state for (text, voice), starting a background
// pipeline the first time the pair is seen. It never blocks on the pipeline.
func (t *Tracker) GetOrStart(text, voice string) *State {
	hash := t.HashFor(text, voice)

	t.mu.Lock()
	if state, ok := t.states[hash]; ok {
		t.mu.Unlock()
		return state
	}
	state := newState(hash, t.now())
	t.states[hash] = state
	t.mu.Unlock()

	logger.Info("[speech/GetOrStart] 启动合成流水线",
		logger.String("hash", hash),
		logger.String("voice", voice),
		logger.Int("textLength", len(text)))
	t.add(t.instruments.started, 1)

	go t.run(state, text, voice)
	return state
}

// Lookup returns the state for hash without starting any work.
func (t *Tracker) Lookup(hash string) (*State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[hash]
	return state, ok
}

func (t *Tracker) pendingCount() int {
	t.mu.Lock()
	states := make([]*State, 0, len(t.states))
	for _, s := range t.states {
		states = append(states, s)
	}
	t.mu.Unlock()

	n := 0
	for _, s := range states {
		if s.Status() == StatusPending {
			n++
		}
	}
	return n
}

// run 在独立的 goroutine 中执行，错误只记录到 State 中
func (t *Tracker) run(state *State, text, voice string) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.finishErr(state, fmt.Errorf("synthesis pipeline panicked: %v", r), started)
		}
	}()

	result, err := t.pipeline(context.Background(), state.Hash, text, voice)
	if err != nil {
		t.finishErr(state, err, started)
		return
	}

	if state.complete(*result) {
		t.add(t.instruments.completed, 1, attribute.String("result", "done"))
		logger.Info("[speech/run] 合成完成",
			logger.String("hash", state.Hash),
			logger.Duration("elapsed", time.Since(started)))
	}
}

func (t *Tracker) finishErr(state *State, err error, started time.Time) {
	if state.fail(err.Error()) {
		t.add(t.instruments.completed, 1, attribute.String("result", "error"))
		logger.Error("[speech/run] 合成失败",
			logger.String("hash", state.Hash),
			logger.Duration("elapsed", time.Since(started)),
			logger.ErrorField(err))
	}
}

func (t *Tracker) pipeline(ctx context.Context, hash, text, voice string) (*Result, error) {
	result := &Result{AudioKey: AudioKey(hash), SentencesKey: SentencesKey(hash)}

	// 音频最后上传，音频存在即说明句子文件也已存在
	exists, err := t.store.Exists(ctx, result.AudioKey)
	if err != nil {
		return nil, transportErr("check stored audio", err)
	}
	if exists {
		logger.Info("[speech/pipeline] 存储中已有合成结果，跳过合成", logger.String("hash", hash))
		t.add(t.instruments.storeHits, 1)
		return result, nil
	}

	jobID, err := t.gateway.Submit(ctx, hash, text, voice)
	if err != nil {
		return nil, err
	}

	status, err := t.gateway.Wait(ctx, jobID)
	if err != nil {
		return nil, err
	}

	output, err := t.gateway.FetchAndUnpack(ctx, status.ResultURL)
	if err != nil {
		return nil, err
	}

	uploads := []struct {
		key         string
		data        []byte
		contentType string
	}{
		{ArchiveKey(hash), output.Archive, "application/zip"},
		{result.SentencesKey, output.SentencesJSON, "application/json"},
		{result.AudioKey, output.Audio, "audio/mpeg"},
	}
	for _, u := range uploads {
		if err := t.store.Put(ctx, u.key, u.data, u.contentType); err != nil {
			return nil, transportErr("store "+u.key, err)
		}
	}

	return result, nil
}

func (t *Tracker) add(counter metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(context.Background(), n, metric.WithAttributes(attrs...))
}
