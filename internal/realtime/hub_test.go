package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-pulse-api/internal/models"
)

func newHubServer(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub(nil)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Serve(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck
	return hub, conn
}

func joinRoom(t *testing.T, hub *Hub, conn *websocket.Conn, surveyID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Frame{Action: "join", SurveyID: surveyID}))
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(surveyID) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHubDeliversStatisticsToRoom(t *testing.T) {
	hub, conn := newHubServer(t)
	joinRoom(t, hub, conn, "s1")

	hub.PublishStatistics("s1", &models.SurveyStatistics{
		SurveyID:       "s1",
		Title:          "Coffee habits",
		TotalResponses: 7,
	})

	conn.SetReadDeadline(time.Now().Add(time.Second)) //nolint:errcheck
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, EventStatisticsUpdate, frame.Event)
	assert.Equal(t, "s1", frame.SurveyID)

	var stats models.SurveyStatistics
	require.NoError(t, json.Unmarshal(frame.Data, &stats))
	assert.Equal(t, 7, stats.TotalResponses)
}

func TestHubScopesRoomsBySurvey(t *testing.T) {
	hub, conn := newHubServer(t)
	joinRoom(t, hub, conn, "s1")

	hub.PublishStatistics("other", &models.SurveyStatistics{SurveyID: "other"})
	hub.PublishStatistics("s1", &models.SurveyStatistics{SurveyID: "s1", TotalResponses: 1})

	conn.SetReadDeadline(time.Now().Add(time.Second)) //nolint:errcheck
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "s1", frame.SurveyID)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub, conn := newHubServer(t)
	joinRoom(t, hub, conn, "s1")

	require.NoError(t, conn.WriteJSON(Frame{Action: "leave", SurveyID: "s1"}))
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("s1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub, conn := newHubServer(t)
	joinRoom(t, hub, conn, "s1")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("s1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	hub.PublishStatistics("s1", &models.SurveyStatistics{SurveyID: "s1"})
	assert.Equal(t, 0, hub.SubscriberCount("s1"))
}
