package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/pikicariks/rain-detection-system/db"
	"github.com/pikicariks/rain-detection-system/internal/dashboard"
	"github.com/pikicariks/rain-detection-system/internal/orchestrator"
)

const (
	defaultLogCount     = 50
	defaultCommandCount = 20
)

type Server struct {
	db           *sql.DB
	orchestrator *orchestrator.Orchestrator
	aggregator   *dashboard.Aggregator
}

type ServoMoveRequest struct {
	Position int `json:"position"`
}

type SettingsUpdateRequest struct {
	RainThreshold  int `json:"rainThreshold"`
	NormalPosition int `json:"normalPosition"`
	RainPosition   int `json:"rainPosition"`
}

type ProximitySettingsRequest struct {
	Threshold int `json:"threshold"`
}

type CommandResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(database *sql.DB, orch *orchestrator.Orchestrator, agg *dashboard.Aggregator) *Server {
	return &Server{
		db:           database,
		orchestrator: orch,
		aggregator:   agg,
	}
}

// Routes builds the request router. All validation happens here, before
// any command row is created.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/rainsystem", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Post("/servo/move", s.moveServo)
		r.Post("/system/toggle", s.toggleSystem)
		r.Post("/settings/update", s.updateSettings)
		r.Get("/logs", s.getLogs)
		r.Get("/commands", s.getCommands)
		r.Post("/proximity/acknowledge", s.acknowledgeProximity)
		r.Post("/proximity/settings", s.updateProximitySettings)
	})

	return r
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")
	return http.ListenAndServe(addr, s.Routes())
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.aggregator.Dashboard(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dashboard view")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) moveServo(w http.ResponseWriter, r *http.Request) {
	var req ServoMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.Position < 0 || req.Position > 180 {
		s.writeError(w, http.StatusBadRequest, "Position must be between 0 and 180 degrees")
		return
	}

	success, err := s.orchestrator.Execute(r.Context(), orchestrator.ServoMove{Position: req.Position})
	if err != nil {
		log.Error().Err(err).Int("position", req.Position).Msg("Failed to execute servo move")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{Success: success, Message: "Servo move command sent"})
}

func (s *Server) toggleSystem(w http.ResponseWriter, r *http.Request) {
	success, err := s.orchestrator.Execute(r.Context(), orchestrator.ToggleSystem{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute system toggle")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{Success: success, Message: "System toggle command sent"})
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.RainThreshold < 0 || req.RainThreshold > 1024 {
		s.writeError(w, http.StatusBadRequest, "Rain threshold must be between 0 and 1024")
		return
	}
	if req.NormalPosition < 0 || req.NormalPosition > 180 {
		s.writeError(w, http.StatusBadRequest, "Normal position must be between 0 and 180 degrees")
		return
	}
	if req.RainPosition < 0 || req.RainPosition > 180 {
		s.writeError(w, http.StatusBadRequest, "Rain position must be between 0 and 180 degrees")
		return
	}

	success, err := s.orchestrator.Execute(r.Context(), orchestrator.UpdateSettings{
		RainThreshold:  req.RainThreshold,
		NormalPosition: req.NormalPosition,
		RainPosition:   req.RainPosition,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute settings update")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{Success: success, Message: "Settings update command sent"})
}

func (s *Server) getLogs(w http.ResponseWriter, r *http.Request) {
	count := parseCount(r, defaultLogCount)
	logs, err := db.GetRecentRainLogs(s.db, count)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get rain logs")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) getCommands(w http.ResponseWriter, r *http.Request) {
	count := parseCount(r, defaultCommandCount)
	commands, err := db.GetRecentCommands(s.db, count)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get commands")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, commands)
}

func (s *Server) acknowledgeProximity(w http.ResponseWriter, r *http.Request) {
	success, err := s.orchestrator.Execute(r.Context(), orchestrator.AcknowledgeProximity{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute proximity acknowledgement")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{Success: success, Message: "Proximity alert acknowledged"})
}

func (s *Server) updateProximitySettings(w http.ResponseWriter, r *http.Request) {
	var req ProximitySettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.Threshold < 10 || req.Threshold > 200 {
		s.writeError(w, http.StatusBadRequest, "Threshold must be between 10 and 200 cm")
		return
	}

	success, err := s.orchestrator.Execute(r.Context(), orchestrator.UpdateProximitySettings{Threshold: req.Threshold})
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute proximity settings update")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{Success: success, Message: "Proximity settings updated"})
}

func parseCount(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return fallback
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return fallback
	}
	return count
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
