// Package itinerary exposes itinerary builds over HTTP: submit, poll, cancel,
// download the PDF and follow progress over a websocket.
package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/logging"
	"luxe/middleware"
	"luxe/models"
	"luxe/progress"
	"luxe/utils"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	builds *Registry
	run    RunFunc
	hub    *progress.Hub
	logger *zap.Logger
}

// NewHandler wires the endpoints. hub may be nil, which disables the websocket stream.
func NewHandler(builds *Registry, run RunFunc, hub *progress.Hub, logger *zap.Logger) *Handler {
	return &Handler{builds: builds, run: run, hub: hub, logger: logging.OrNop(logger)}
}

// POST /api/itineraries
func (h *Handler) CreateItinerary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.TripRequest
	if err := dec.Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		utils.RespondWithError(w, apperr.HTTPStatus(err), err.Error())
		return
	}

	id, err := h.builds.Start(req, h.run)
	if errors.Is(err, ErrShuttingDown) {
		utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Could not start build")
		return
	}

	h.logger.Info("build accepted",
		zap.String("build_id", id),
		zap.String("destination", req.Destination),
		zap.String("user_id", middleware.UserID(r.Context())))
	w.Header().Set("Location", "/api/itineraries/"+id)
	utils.RespondWithJSON(w, http.StatusAccepted, utils.M{
		"build_id": id,
		"status":   StatusRunning,
	})
}

// GET /api/itineraries/:id
func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, ok := h.builds.Get(ps.ByName("id"))
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Build not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

// DELETE /api/itineraries/:id
func (h *Handler) DeleteItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if _, ok := h.builds.Get(id); !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Build not found")
		return
	}
	if !h.builds.Cancel(id) {
		utils.RespondWithError(w, http.StatusConflict, "Build already finished")
		return
	}
	h.logger.Info("build cancelled by client", zap.String("build_id", id))
	utils.RespondWithJSON(w, http.StatusAccepted, utils.M{"build_id": id, "message": "Cancelling"})
}

// GET /api/itineraries/:id/document
func (h *Handler) DownloadItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doc, snap, ok := h.builds.Document(ps.ByName("id"))
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Build not found")
		return
	}
	if doc == nil {
		if snap.Status == StatusRunning {
			utils.RespondWithError(w, http.StatusConflict, "Document not ready")
			return
		}
		utils.RespondWithError(w, http.StatusNotFound, "Build produced no document")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Bytes); err != nil {
		h.logger.Debug("writing document", zap.Error(err))
	}
}

// GET /api/itineraries/:id/ws
func (h *Handler) StreamItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h.hub == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Progress stream disabled")
		return
	}
	id := ps.ByName("id")
	if _, ok := h.builds.Get(id); !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Build not found")
		return
	}
	h.hub.Serve(w, r, id)
}
