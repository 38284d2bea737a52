package middleware

import (
	"encoding/json"
	"net/http"

	chiMid "github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeError rejects a request. htmx callers get a JSON body, a cart:error
// client event and no swap; plain requests get a text response.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if !IsHTMX(r.Context()) {
		http.Error(w, msg, code)
		return
	}
	if trigger, err := json.Marshal(map[string]string{"cart:error": msg}); err == nil {
		w.Header().Set("HX-Trigger", string(trigger))
	}
	w.Header().Set("HX-Reswap", "none")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, RequestID: chiMid.GetReqID(r.Context())})
}
