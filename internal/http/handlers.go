package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Muhammadxon2oo7/agro/internal/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

const (
	msgMissingFields  = "Missing required fields"
	msgMissingMetrics = "Missing required metrics: "
	msgProcessFailed  = "Failed to process data"
	msgRetrieveFailed = "Failed to retrieve data"
	msgReceived       = "Data received successfully"
)

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data interface{} `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *HTTPServer) submitReading(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Error("Failed to read request body", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	if _, err := s.service.Submit(r.Context(), raw); err != nil {
		var missing *domain.MissingMetricsError
		switch {
		case errors.Is(err, domain.ErrMissingFields):
			s.writeError(w, http.StatusBadRequest, msgMissingFields)
		case errors.As(err, &missing):
			s.writeError(w, http.StatusBadRequest, msgMissingMetrics+missing.List())
		default:
			s.logger.Error("Failed to process soil data", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, msgProcessFailed)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, submitResponse{Success: true, Message: msgReceived})
}

func (s *HTTPServer) listReadings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondReadings(w, r, filter)
}

func (s *HTTPServer) listDeviceReadings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.DeviceID = mux.Vars(r)["id"]
	s.respondReadings(w, r, filter)
}

func (s *HTTPServer) respondReadings(w http.ResponseWriter, r *http.Request, filter domain.ReadingFilter) {
	readings, err := s.service.ListReadings(r.Context(), filter)
	if err != nil {
		var invalid *domain.InvalidFilterError
		if errors.As(err, &invalid) {
			s.writeError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		s.logger.Error("Failed to retrieve soil data", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, msgRetrieveFailed)
		return
	}
	if readings == nil {
		readings = []*domain.SoilReading{}
	}
	s.writeJSON(w, http.StatusOK, dataResponse{Data: readings})
}

func (s *HTTPServer) getSummary(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")

	summary, err := s.service.Summarize(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "No readings found")
			return
		}
		s.logger.Error("Failed to summarize soil data",
			zap.String("device_id", deviceID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, msgRetrieveFailed)
		return
	}
	s.writeJSON(w, http.StatusOK, dataResponse{Data: summary})
}

func (s *HTTPServer) listDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, dataResponse{Data: s.devices.List(r.URL.Query().Get("q"))})
}

func (s *HTTPServer) getDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	device, err := s.devices.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	s.writeJSON(w, http.StatusOK, dataResponse{Data: device})
}

func (s *HTTPServer) removeDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.devices.Remove(id); err != nil {
		s.writeError(w, http.StatusNotFound, "Device not found")
		return
	}
	s.logger.Info("Device terminated", zap.String("device_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// parseFilter reads deviceId, from, to and limit. Empty values are ignored.
func parseFilter(q url.Values) (domain.ReadingFilter, error) {
	filter := domain.ReadingFilter{DeviceID: q.Get("deviceId")}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, &domain.InvalidFilterError{Param: p.name, Reason: "must be an RFC 3339 timestamp"}
		}
		*p.dst = &t
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return filter, &domain.InvalidFilterError{Param: "limit", Reason: "must be a positive integer"}
		}
		filter.Limit = limit
	}

	return filter, filter.Validate()
}
