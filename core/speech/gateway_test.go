package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range members {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const sentenceFile = `[
  {"Text":"Hello world.","AudioOffset":0,"Duration":1000,"TextOffset":0,"WordLength":12},
  {"Text":"Second.","AudioOffset":1000,"Duration":1500}
]`

func TestHash_Stable(t *testing.T) {
	a := Hash("Hello world.", "en-US-CoraMultilingualNeural", "v1")
	b := Hash("Hello world.", "en-US-CoraMultilingualNeural", "v1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, Hash("Hello world!", "en-US-CoraMultilingualNeural", "v1"))
	assert.NotEqual(t, a, Hash("Hello world.", "en-US-CoraMultilingualNeural", "v2"))
	// 字段之间有分隔符
	assert.NotEqual(t, Hash("ab", "c", "v1"), Hash("a", "bc", "v1"))
}

func TestUnpack(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"0001.mp3":           "ID3-audio",
		"0001.sentence.json": sentenceFile,
		"summary.json":       `{"jobID":"x"}`,
	})

	out, err := Unpack(archive)
	require.NoError(t, err)

	assert.Equal(t, []byte("ID3-audio"), out.Audio)
	assert.Equal(t, archive, out.Archive)
	require.Len(t, out.Sentences, 2)
	assert.Equal(t, Sentence{Text: "Second.", AudioOffset: 1000, Duration: 1500}, out.Sentences[1])

	var normalized []map[string]any
	require.NoError(t, json.Unmarshal(out.SentencesJSON, &normalized))
	assert.NotContains(t, normalized[0], "WordLength")
	assert.EqualValues(t, 1000, normalized[0]["Duration"])
}

func TestUnpack_MissingMembers(t *testing.T) {
	_, err := Unpack(buildArchive(t, map[string]string{"0001.sentence.json": sentenceFile}))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Member, "audio")

	_, err = Unpack(buildArchive(t, map[string]string{"0001.mp3": "audio"}))
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Member, "sentence")

	_, err = Unpack([]byte("definitely not a zip"))
	require.ErrorAs(t, err, &decodeErr)
}

type fakeAzure struct {
	server    *httptest.Server
	puts      atomic.Int32
	polls     atomic.Int32
	putStatus int
	statuses  []string // returned in order, the last one repeats
	archive   []byte
}

func newFakeAzure(t *testing.T) *fakeAzure {
	f := &fakeAzure{putStatus: http.StatusCreated}
	mux := http.NewServeMux()
	mux.HandleFunc("/texttospeech/batchsyntheses/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-04-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		id := strings.TrimPrefix(r.URL.Path, "/texttospeech/batchsyntheses/")

		switch r.Method {
		case http.MethodPut:
			f.puts.Add(1)
			var body batchSynthesisRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "PlainText", body.InputKind)
			assert.True(t, body.Properties.SentenceBoundaryEnabled)
			w.WriteHeader(f.putStatus)
		case http.MethodGet:
			n := int(f.polls.Add(1)) - 1
			if n >= len(f.statuses) {
				n = len(f.statuses) - 1
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      id,
				"status":  f.statuses[n],
				"outputs": map[string]string{"result": f.server.URL + "/results/" + id + ".zip"},
			})
		}
	})
	mux.HandleFunc("/results/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Ocp-Apim-Subscription-Key"))
		_, _ = w.Write(f.archive)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAzure) gateway(timeout time.Duration) *AzureGateway {
	return NewAzureGateway(GatewayConfig{
		BaseURL:      f.server.URL,
		Key:          "test-key",
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  timeout,
	})
}

func TestAzureGateway_SubmitWaitFetch(t *testing.T) {
	azure := newFakeAzure(t)
	azure.statuses = []string{"NotStarted", "Running", "Succeeded"}
	azure.archive = buildArchive(t, map[string]string{
		"0001.mp3":           "ID3-audio",
		"0001.sentence.json": sentenceFile,
	})
	gw := azure.gateway(0)
	ctx := context.Background()

	jobID, err := gw.Submit(ctx, "abc123", "Hello world.", testVoice)
	require.NoError(t, err)
	assert.Equal(t, "abc123", jobID)

	status, err := gw.Wait(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, status.Status)
	assert.EqualValues(t, 3, azure.polls.Load())

	out, err := gw.FetchAndUnpack(ctx, status.ResultURL)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-audio"), out.Audio)
	assert.Len(t, out.Sentences, 2)
}

func TestAzureGateway_SubmitConflictIsIgnored(t *testing.T) {
	azure := newFakeAzure(t)
	azure.putStatus = http.StatusConflict

	jobID, err := azure.gateway(0).Submit(context.Background(), "abc123", "text", testVoice)
	require.NoError(t, err)
	assert.Equal(t, "abc123", jobID)
}

func TestAzureGateway_SubmitRejected(t *testing.T) {
	azure := newFakeAzure(t)
	azure.putStatus = http.StatusUnauthorized

	_, err := azure.gateway(0).Submit(context.Background(), "abc123", "text", testVoice)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "401")
}

func TestAzureGateway_WaitFailed(t *testing.T) {
	azure := newFakeAzure(t)
	azure.statuses = []string{"Running", "Failed"}

	_, err := azure.gateway(0).Wait(context.Background(), "abc123")
	var failure *SynthesisFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "abc123", failure.JobID)
	assert.Contains(t, string(failure.Raw), `"Failed"`)
}

func TestAzureGateway_WaitTimeout(t *testing.T) {
	azure := newFakeAzure(t)
	azure.statuses = []string{"Running"}

	_, err := azure.gateway(time.Millisecond).Wait(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestAzureGateway_WaitCancelled(t *testing.T) {
	azure := newFakeAzure(t)
	azure.statuses = []string{"Running"}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := azure.gateway(0).Wait(ctx, "abc123")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}

func TestAzureGateway_FetchBadArchive(t *testing.T) {
	azure := newFakeAzure(t)
	azure.archive = buildArchive(t, map[string]string{"0001.mp3": "audio"})

	_, err := azure.gateway(0).FetchAndUnpack(context.Background(), azure.server.URL+"/results/x.zip")
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	_, err = azure.gateway(0).FetchAndUnpack(context.Background(), "")
	assert.ErrorAs(t, err, &decodeErr)
}

func TestAzureGateway_PollHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer server.Close()

	gw := NewAzureGateway(GatewayConfig{BaseURL: server.URL, Key: "k"})
	_, err := gw.Poll(context.Background(), "abc")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "500")
}
