package httpremote

import (
	"compress/gzip"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/c0deZ3R0/go-mutation-kit/codec"
	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"
)

// Applier is the backend half of the mutation endpoint: given a decoded
// mutation request, it applies it authoritatively and returns the outcome.
type Applier interface {
	ApplyMutation(r *http.Request, req mutationkit.MutationRequest) (mutationkit.Outcome, error)
}

// ApplierFunc adapts a plain function to the Applier interface.
type ApplierFunc func(r *http.Request, req mutationkit.MutationRequest) (mutationkit.Outcome, error)

func (f ApplierFunc) ApplyMutation(r *http.Request, req mutationkit.MutationRequest) (mutationkit.Outcome, error) {
	return f(r, req)
}

// Handler serves the mutation endpoint consumed by Client.
type Handler struct {
	applier    Applier
	codecs     *codec.Registry
	entityType string
}

// NewHandler creates a mutation endpoint handler. entityType names the
// codec used to encode canonical entities in confirmations.
func NewHandler(applier Applier, entityType string, registry *codec.Registry) *Handler {
	if registry == nil {
		registry = codec.DefaultRegistry
	}
	return &Handler{
		applier:    applier,
		codecs:     registry,
		entityType: entityType,
	}
}

// NewRouter mounts the handler on a gorilla/mux router with a health probe.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/mutations", h).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body := r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed gzip body")
			return
		}
		defer gz.Close()
		body = gz
	}

	var wire WireMutation
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed mutation request")
		return
	}
	if wire.Kind == "" {
		respondWithError(w, http.StatusBadRequest, "mutation kind is required")
		return
	}

	req := mutationkit.MutationRequest{
		EntityID: wire.EntityID,
		Kind:     mutationkit.MutationKind(wire.Kind),
		Actor:    wire.Actor,
	}
	if len(wire.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(wire.Payload, &payload); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed mutation payload")
			return
		}
		req.Payload = payload
	}

	outcome, err := h.applier.ApplyMutation(r, req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch outcome.Status {
	case mutationkit.OutcomeConfirmed:
		resp, err := EncodeOutcome(outcome, h.entityType, h.codecs)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, resp)
	case mutationkit.OutcomeRejected:
		respondWithJSON(w, http.StatusConflict, WireOutcome{
			Status: string(mutationkit.OutcomeRejected),
			Reason: outcome.Reason,
		})
	default:
		respondWithError(w, http.StatusInternalServerError, outcome.Reason)
	}
}

// respondWithJSON responds to an HTTP request with a JSON payload
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError responds to an HTTP request with an error message
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
