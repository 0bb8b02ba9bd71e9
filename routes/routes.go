package routes

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"luxe/itinerary"
	"luxe/middleware"
	"luxe/ratelim"
)

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddHealthRoutes(router *httprouter.Router) {
	router.GET("/health", Index)
}

func AddItineraryRoutes(router *httprouter.Router, h *itinerary.Handler, auth *middleware.Auth, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/itineraries", rateLimiter.Limit(auth.Authenticate(h.CreateItinerary))) //Start a build
	router.GET("/api/itineraries/:id", auth.Authenticate(h.GetItinerary))                    //Build status
	router.DELETE("/api/itineraries/:id", auth.Authenticate(h.DeleteItinerary))              //Cancel a build
	router.GET("/api/itineraries/:id/document", auth.Authenticate(h.DownloadItinerary))      //Rendered PDF
	router.GET("/api/itineraries/:id/ws", auth.Authenticate(h.StreamItinerary))              //Progress stream
}

// New builds the router for the API.
func New(h *itinerary.Handler, auth *middleware.Auth, rateLimiter *ratelim.RateLimiter) *httprouter.Router {
	router := httprouter.New()
	AddHealthRoutes(router)
	AddItineraryRoutes(router, h, auth, rateLimiter)
	return router
}
