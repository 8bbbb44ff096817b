// Package api serves read-only views of the books over HTTP and streams
// executed trades over websocket. Orders are not accepted here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"matchbook/domain/orderbook"
)

const defaultDepth = 20

// Engine is the query surface the API reads from.
type Engine interface {
	Markets() []string
	QueryBestBid(pair string) (orderbook.Price, bool)
	QueryBestAsk(pair string) (orderbook.Price, bool)
	Depth(pair string, side orderbook.Side, limit int) ([]orderbook.LevelSummary, error)
	OrderStatus(pair string, id orderbook.OrderID) (orderbook.OrderView, bool)
}

type Server struct {
	engine  Engine
	hub     *Hub
	router  *mux.Router
	origins []string
	log     *zap.Logger
}

func NewServer(engine Engine, hub *Hub, origins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		hub:     hub,
		router:  mux.NewRouter(),
		origins: origins,
		log:     logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/markets", s.handleGetMarkets).Methods(http.MethodGet)
	api.HandleFunc("/markets/{pair}/book", s.handleGetBook).Methods(http.MethodGet)
	api.HandleFunc("/markets/{pair}/orders/{id:[0-9]+}", s.handleGetOrder).Methods(http.MethodGet)

	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler is the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, MarketsResponse{Markets: s.engine.Markets()})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]

	limit := defaultDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid depth", v)
			return
		}
		limit = n
	}

	bids, err := s.engine.Depth(pair, orderbook.Bid, limit)
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", pair)
		return
	}
	asks, err := s.engine.Depth(pair, orderbook.Ask, limit)
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", pair)
		return
	}

	snap := BookSnapshot{
		Pair:      pair,
		Bids:      toLevels(bids),
		Asks:      toLevels(asks),
		Timestamp: time.Now().UnixMilli(),
	}
	if p, ok := s.engine.QueryBestBid(pair); ok {
		snap.BestBid = p.String()
	}
	if p, ok := s.engine.QueryBestAsk(pair); ok {
		snap.BestAsk = p.String()
	}
	respondJSON(w, snap)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pair := vars["pair"]
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", vars["id"])
		return
	}

	view, ok := s.engine.OrderStatus(pair, orderbook.OrderID(id))
	if !ok {
		respondError(w, http.StatusNotFound, "order not resting", "")
		return
	}
	respondJSON(w, OrderStatus{
		ID:        uint64(view.ID),
		Pair:      pair,
		Side:      view.Side.String(),
		Price:     view.Price.String(),
		Original:  view.Original.String(),
		Remaining: view.Remaining.String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func toLevels(in []orderbook.LevelSummary) []Level {
	out := make([]Level, 0, len(in))
	for _, l := range in {
		out = append(out, Level{Price: l.Price.String(), Size: l.Volume.String(), Orders: l.Orders})
	}
	return out
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Message: detail})
}
