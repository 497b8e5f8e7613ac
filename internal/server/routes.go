package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"truco-game/internal/database"
)

// ResultStore is the read side of the results database.
type ResultStore interface {
	GetAll(ctx context.Context) ([]database.GameResult, error)
	GetByPlayer(ctx context.Context, playerName string) ([]database.GameResult, error)
}

// NewRouter wires the WebSocket endpoint, the results API and the static
// client files.
func NewRouter(hub *Hub, db ResultStore, staticDir string, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})
	HandleRoutes(mux, db, logger)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func HandleRoutes(mux *http.ServeMux, db ResultStore, logger *zap.Logger) {
	mux.HandleFunc("GET /api/results/player/{name}", func(w http.ResponseWriter, r *http.Request) {
		GetResultsByPlayerHandler(db, logger, w, r)
	})
	mux.HandleFunc("GET /api/results", func(w http.ResponseWriter, r *http.Request) {
		GetResultsHandler(db, logger, w, r)
	})
	logger.Debug("registered results routes")
}

func GetResultsByPlayerHandler(db ResultStore, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("name")
	if player == "" {
		http.Error(w, "Player name is required", http.StatusBadRequest)
		return
	}

	results, err := db.GetByPlayer(r.Context(), player)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "No results found for player", http.StatusNotFound)
			return
		}
		logger.Error("failed to fetch player results", zap.String("player", player), zap.Error(err))
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}

	writeJSON(w, results)
}

func GetResultsHandler(db ResultStore, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	results, err := db.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to fetch results", zap.Error(err))
		http.Error(w, "Failed to fetch results", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []database.GameResult{}
	}

	writeJSON(w, results)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
