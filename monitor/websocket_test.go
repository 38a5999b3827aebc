package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/tc1000/control"
)

func TestParseInterval(t *testing.T) {
	tt := []struct {
		name     string
		url      string
		expected time.Duration
	}{
		{"default", "/ws", time.Second},
		{"interval", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval ms", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"too short", "/ws?interval=1ms", time.Second},
		{"too short ms", "/ws?interval_ms=1", minInterval},
		{"too long", "/ws?interval=20s", time.Second},
		{"invalid", "/ws?interval=bogus", time.Second},
		{"interval wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)

			assert.Equal(t, tc.expected, parseInterval(c))
		})
	}
}

func TestWebSocket_StreamsSnapshots(t *testing.T) {
	controls := &fakeControls{snapshot: control.Snapshot{Status: "Connected to COM3", State: "connected", CurrentC: 21.5}}
	server := httptest.NewServer(newTestRouter(controls))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?interval=50ms"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var envelope struct {
			Type string           `json:"type"`
			Data control.Snapshot `json:"data"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&envelope))
		assert.Equal(t, "state", envelope.Type)
		assert.Equal(t, "Connected to COM3", envelope.Data.Status)
		assert.Equal(t, 21.5, envelope.Data.CurrentC)
	}
}
