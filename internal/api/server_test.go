package api

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", pkg.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestNewServerRequiresLogger(t *testing.T) {
	_, err := NewServer("127.0.0.1:0", nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := startTestServer(t)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestTraceStream(t *testing.T) {
	s := startTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.Hub().ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	event := chord.LookupEvent{
		Type:      chord.EventLookupCompleted,
		NodeID:    4,
		Address:   1,
		Initiator: 4,
		Seq:       0,
		Key:       10,
		Path:      []uint64{4, 9, 14},
		Message:   "4 -> 9 -> 14",
	}
	require.NoError(t, s.Hub().BroadcastLookupEvent(event))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got chord.LookupEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, event, got)
}

func TestTraceHubStop(t *testing.T) {
	hub := NewTraceHub(nil)
	hub.Start()

	// broadcasting without clients never blocks
	for i := 0; i < 10; i++ {
		require.NoError(t, hub.BroadcastLookupEvent(chord.LookupEvent{Type: chord.EventLocallyDone}))
	}

	stopped := make(chan struct{})
	go func() {
		hub.Stop()
		hub.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestTraceHubStopWaitsForLoop(t *testing.T) {
	for i := 0; i < 50; i++ {
		hub := NewTraceHub(nil)
		hub.Start()
		hub.Stop()

		// nothing serves register once the loop has exited
		select {
		case hub.register <- &client{}:
			t.Fatal("hub loop still running after Stop")
		default:
		}
	}
}

func TestTraceHubStopWithoutStart(t *testing.T) {
	hub := NewTraceHub(nil)
	done := make(chan struct{})
	go func() {
		hub.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a hub that never started")
	}
}
