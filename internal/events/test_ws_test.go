package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_StreamsFilteredEvents(t *testing.T) {
	bus := NewBus()
	srv := httptest.NewServer(NewHandler(bus, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?lead_id=l1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello wsOutbound
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "subscribed", hello.Type)

	bus.Publish(Event{Kind: KindStageStarted, LeadID: "other", Stage: "research"})
	bus.Publish(Event{Kind: KindStageCompleted, LeadID: "l1", Stage: "research"})

	var got wsOutbound
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "event", got.Type)
	require.NotNil(t, got.Event)
	assert.Equal(t, KindStageCompleted, got.Event.Kind)
	assert.Equal(t, "l1", got.Event.LeadID)
}
