package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	DetectionSubmit http.HandlerFunc
	DetectionUpload http.HandlerFunc
	DetectionsList  http.HandlerFunc
	Sessions        http.HandlerFunc
	CurrentSession  http.HandlerFunc
	Status          http.HandlerFunc
	ManualLookup    http.HandlerFunc
	ResidentCreate  http.HandlerFunc
	ResidentsList   http.HandlerFunc
	DetectorStream  http.HandlerFunc
	Health          http.HandlerFunc
	StaticImages    http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.DetectionSubmit != nil {
		mux.Handle("/api/detections", byMethod(map[string]http.HandlerFunc{
			http.MethodPost: routes.DetectionSubmit,
			http.MethodGet:  routes.DetectionsList,
		}))
	}
	if routes.DetectionUpload != nil {
		mux.Handle("/api/detections/upload", method(http.MethodPost, routes.DetectionUpload))
	}
	if routes.Sessions != nil {
		mux.Handle("/api/sessions", method(http.MethodGet, routes.Sessions))
		// the frontend historically reads verifications as sessions
		mux.Handle("/api/verifications", method(http.MethodGet, routes.Sessions))
	}
	if routes.CurrentSession != nil {
		mux.Handle("/api/sessions/current", method(http.MethodGet, routes.CurrentSession))
	}
	if routes.Status != nil {
		mux.Handle("/api/status", method(http.MethodGet, routes.Status))
	}
	if routes.ManualLookup != nil {
		mux.Handle("/api/manual_lookup", method(http.MethodPost, routes.ManualLookup))
	}
	if routes.ResidentCreate != nil {
		mux.Handle("/api/residents", byMethod(map[string]http.HandlerFunc{
			http.MethodPost: routes.ResidentCreate,
			http.MethodGet:  routes.ResidentsList,
		}))
	}
	if routes.ResidentsList != nil {
		mux.Handle("/api/vehicles", method(http.MethodGet, routes.ResidentsList))
		mux.Handle("/api/owners", method(http.MethodGet, routes.ResidentsList))
	}
	if routes.DetectorStream != nil {
		mux.Handle("/ws/detections", routes.DetectorStream)
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.StaticImages != nil {
		mux.Handle("/static/images/", http.StripPrefix("/static/images/", routes.StaticImages))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return byMethod(map[string]http.HandlerFunc{expected: handler})
}

func byMethod(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok && handler != nil {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
