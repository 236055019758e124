package httputil

import (
	"encoding/json"
	"net/http"
)

// Result values used in every response envelope.
const (
	ResultSuccess = "SUCCESS"
	ResultFailure = "FAILURE"
)

// Envelope is the uniform response shape the mobile client expects.
type Envelope struct {
	Result  string      `json:"result"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// RespondJSON writes a JSON response with the given status code.
// It marshals first, preventing partial responses if encoding fails after
// headers are sent.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondSuccess writes a SUCCESS envelope.
func RespondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	RespondJSON(w, status, Envelope{Result: ResultSuccess, Message: message, Data: data})
}

// RespondFailure writes a FAILURE envelope with null data.
func RespondFailure(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, Envelope{Result: ResultFailure, Message: message, Data: nil})
}
