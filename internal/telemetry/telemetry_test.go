package telemetry

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reflens/reflens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_EnqueuePostsEvent(t *testing.T) {
	received := make(chan payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
	}))
	defer srv.Close()

	c := New(srv.URL, testutil.NewTestLogger(t))
	c.Enqueue(EventModelHover, map[string]string{"type": TagSingle})

	select {
	case p := <-received:
		assert.Equal(t, EventModelHover, p.Event)
		assert.Equal(t, c.sessionID, p.SessionID)
		assert.Equal(t, TagSingle, p.Props["type"])
		assert.False(t, p.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("event never arrived")
	}
}

func TestClient_SessionIDStableAcrossEvents(t *testing.T) {
	received := make(chan payload, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
	}))
	defer srv.Close()

	c := New(srv.URL, testutil.NewTestLogger(t))
	c.Enqueue(EventModelHover, map[string]string{"type": TagSingle})
	c.Enqueue(EventModelHover, map[string]string{"type": TagDual})

	var ids []string
	for i := 0; i < 2; i++ {
		select {
		case p := <-received:
			ids = append(ids, p.SessionID)
		case <-time.After(5 * time.Second):
			t.Fatal("event never arrived")
		}
	}
	assert.Equal(t, ids[0], ids[1])
	assert.NotEmpty(t, ids[0])
}

func TestClient_SendFailureDoesNotPanic(t *testing.T) {
	// Unroutable endpoint; the failure must stay inside the client. The
	// goroutine may outlive the test, so it gets a detached logger.
	c := New("http://127.0.0.1:0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.Enqueue(EventModelHover, nil)
	time.Sleep(50 * time.Millisecond)
}

func TestNoop(t *testing.T) {
	Noop().Enqueue(EventModelHover, map[string]string{"type": TagDual})
}
