package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"homereader/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoogle struct {
	server     *httptest.Server
	refreshes  atomic.Int32
	listStatus int
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{listStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		if r.PostForm.Get("refresh_token") != "rt" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		f.refreshes.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"at","expires_in":3600,"token_type":"Bearer"}`))
	})
	mux.HandleFunc("/tasks/v1/lists/@default/tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("showCompleted"))
		if f.listStatus != http.StatusOK {
			w.WriteHeader(f.listStatus)
			return
		}
		_, _ = w.Write([]byte(`{"items":[
			{"id":"1","title":"Buy milk","status":"needsAction"},
			{"id":"2","title":"File taxes","status":"completed"},
			{"id":"3","title":"","status":"needsAction"}
		]}`))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) client(refreshToken string) *Client {
	return NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: refreshToken,
		TokenURL:     f.server.URL + "/token",
		APIURL:       f.server.URL + "/tasks/v1",
	})
}

func TestList(t *testing.T) {
	google := newFakeGoogle(t)
	c := google.client("rt")

	tasks, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Task{
		{ID: "1", Title: "Buy milk"},
		{ID: "2", Title: "File taxes", Completed: true},
	}, tasks)

	// token 被复用
	_, err = c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, google.refreshes.Load())
}

func TestList_RefreshesExpiredToken(t *testing.T) {
	google := newFakeGoogle(t)
	c := google.client("rt")
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.List(context.Background())
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, google.refreshes.Load())
}

func TestList_BadRefreshToken(t *testing.T) {
	google := newFakeGoogle(t)
	_, err := google.client("nope").List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestList_UnauthorizedDropsToken(t *testing.T) {
	google := newFakeGoogle(t)
	google.listStatus = http.StatusUnauthorized
	c := google.client("rt")

	_, err := c.List(context.Background())
	require.Error(t, err)

	google.listStatus = http.StatusOK
	_, err = c.List(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, google.refreshes.Load())
}
