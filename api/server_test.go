package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/orderbook"
	"matchbook/service"
)

func newTestServer(t *testing.T) (*service.MatchingEngine, *Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, nil)
	engine := service.NewMatchingEngine(nil, nil, hub)
	require.NoError(t, engine.AddNewMarket("BTC-USD"))

	srv := httptest.NewServer(NewServer(engine, hub, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return engine, hub, srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetMarkets(t *testing.T) {
	_, _, srv := newTestServer(t)

	var got MarketsResponse
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/markets", &got))
	assert.Equal(t, []string{"BTC-USD"}, got.Markets)
}

func TestGetBook(t *testing.T) {
	engine, _, srv := newTestServer(t)
	for _, o := range []struct {
		price string
		side  orderbook.Side
	}{{"99.5", orderbook.Bid}, {"99", orderbook.Bid}, {"100.25", orderbook.Ask}} {
		_, err := engine.SubmitLimitOrder("BTC-USD", o.price, o.side, "1.5")
		require.NoError(t, err)
	}

	var snap BookSnapshot
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/markets/BTC-USD/book?depth=1", &snap))
	assert.Equal(t, "99.5", snap.BestBid)
	assert.Equal(t, "100.25", snap.BestAsk)
	assert.Equal(t, []Level{{Price: "99.5", Size: "1.5", Orders: 1}}, snap.Bids)
	assert.Len(t, snap.Asks, 1)
}

func TestGetBookErrors(t *testing.T) {
	_, _, srv := newTestServer(t)

	var e ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/markets/NOPE/book", &e))
	assert.Equal(t, "market not found", e.Error)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/markets/BTC-USD/book?depth=x", &e))
}

func TestGetOrder(t *testing.T) {
	engine, _, srv := newTestServer(t)
	id, err := engine.SubmitLimitOrder("BTC-USD", "10", orderbook.Ask, "2")
	require.NoError(t, err)

	var got OrderStatus
	url := srv.URL + "/api/v1/markets/BTC-USD/orders/" + strconv.FormatUint(uint64(id), 10)
	assert.Equal(t, http.StatusOK, getJSON(t, url, &got))
	assert.Equal(t, "ask", got.Side)
	assert.Equal(t, "2", got.Remaining)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/markets/BTC-USD/orders/999999", nil))
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, srv := newTestServer(t)
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTradesStreamOverWebsocket(t *testing.T) {
	engine, hub, srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{TradeChannel("BTC-USD")}}))
	require.Eventually(t, func() bool { return hub.Subscribers(TradeChannel("BTC-USD")) == 1 }, 2*time.Second, 5*time.Millisecond)

	maker, err := engine.SubmitLimitOrder("BTC-USD", "100", orderbook.Ask, "3")
	require.NoError(t, err)
	_, err = engine.SubmitMarketOrder("BTC-USD", orderbook.Bid, "1")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg TradeMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "trade", msg.Type)
	assert.Equal(t, "BTC-USD", msg.Pair)
	assert.Equal(t, uint64(maker), msg.MakerOrderID)
	assert.Equal(t, "bid", msg.TakerSide)
	assert.Equal(t, "100", msg.Price)
	assert.Equal(t, "1", msg.Size)
}

func TestWebsocketChecksOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com", "https://*.desk.example.com"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"listed", "https://app.example.com", true},
		{"listed other case", "https://APP.example.com", true},
		{"wildcard", "https://eu.desk.example.com", true},
		{"no header", "", true},
		{"foreign", "https://evil.example.net", false},
		{"lookalike", "https://app.example.com.evil.net", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestOriginCheckerAllowsAllForWildcard(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	assert.True(t, originChecker([]string{"*"})(r))
	assert.True(t, originChecker(nil)(r))
	assert.False(t, originChecker([]string{"https://other.example"})(r))
}
