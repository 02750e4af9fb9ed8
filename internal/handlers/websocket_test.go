package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/common"
	"github.com/ternarybob/tickerchat/internal/interfaces"
	"github.com/ternarybob/tickerchat/internal/services/events"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_HelloAndBroadcast(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	clients := []*websocket.Conn{dial(t, server), dial(t, server), dial(t, server)}
	for _, conn := range clients {
		hello := readMessage(t, conn)
		assert.Equal(t, "hello", hello.Type)
	}
	require.Eventually(t, func() bool { return handler.ClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	handler.Broadcast(WSMessage{Type: "analysis_started", Payload: map[string]string{"analysis_id": "ana_1"}})

	for _, conn := range clients {
		msg := readMessage(t, conn)
		assert.Equal(t, "analysis_started", msg.Type)
		payload, ok := msg.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ana_1", payload["analysis_id"])
	}

	clients[0].Close()
	require.Eventually(t, func() bool { return handler.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventSubscriber_ForwardsAllowedEvents(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	defer eventService.Close()

	handler := NewWebSocketHandler(logger)
	NewEventSubscriber(handler, eventService, logger, &common.WebSocketConfig{
		AllowedEvents: []string{string(interfaces.EventAnalysisCompleted)},
	})

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()
	conn := dial(t, server)
	readMessage(t, conn) // hello
	require.Eventually(t, func() bool { return handler.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventAnalysisStarted,
		Payload: map[string]interface{}{"analysis_id": "ana_filtered"},
	}))
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventAnalysisCompleted,
		Payload: map[string]interface{}{"analysis_id": "ana_1", "status": "completed"},
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, string(interfaces.EventAnalysisCompleted), msg.Type)
	payload := msg.Payload.(map[string]interface{})
	assert.Equal(t, "ana_1", payload["analysis_id"])
}

func TestEventSubscriber_Throttle(t *testing.T) {
	logger := arbor.NewLogger()
	throttles := map[string]string{"broken": "soon"}
	throttles[string(interfaces.EventPipelineCompleted)] = "1h"
	s := NewEventSubscriber(NewWebSocketHandler(logger), nil, logger, &common.WebSocketConfig{
		ThrottleIntervals: throttles,
	})

	assert.True(t, s.shouldBroadcastEvent(string(interfaces.EventPipelineCompleted)))
	assert.False(t, s.shouldBroadcastEvent(string(interfaces.EventPipelineCompleted)))
	assert.True(t, s.shouldBroadcastEvent("broken"))
	assert.True(t, s.shouldBroadcastEvent(string(interfaces.EventAnalysisCompleted)))
}
