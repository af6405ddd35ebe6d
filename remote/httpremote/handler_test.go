package httpremote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"
)

func TestHandlerRoundTrip(t *testing.T) {
	registry := testRegistry()

	applier := ApplierFunc(func(_ *http.Request, req mutationkit.MutationRequest) (mutationkit.Outcome, error) {
		switch req.EntityID {
		case "user-1":
			status, _ := req.Payload.(string)
			return mutationkit.Confirmed(&testUser{UserID: "user-1", Status: status}), nil
		case "user-2":
			return mutationkit.Rejected("forbidden"), nil
		default:
			return mutationkit.Unknown("backend unavailable"), nil
		}
	})

	srv := httptest.NewServer(NewRouter(NewHandler(applier, "user", registry)))
	defer srv.Close()

	client := NewClient(srv.URL+"/mutations",
		WithCodecRegistry(registry),
		WithRetryConfig(noRetry()),
	)

	t.Run("confirmed with canonical entity", func(t *testing.T) {
		outcome, err := client.Submit(context.Background(), mutationkit.MutationRequest{
			EntityID: "user-1", Kind: "set_status", Payload: "inactive",
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if outcome.Status != mutationkit.OutcomeConfirmed {
			t.Fatalf("outcome status = %q, want confirmed", outcome.Status)
		}
		if got := outcome.Entity.(*testUser).Status; got != "inactive" {
			t.Errorf("canonical status = %q, want %q", got, "inactive")
		}
	})

	t.Run("rejected carries reason", func(t *testing.T) {
		outcome, err := client.Submit(context.Background(), mutationkit.MutationRequest{
			EntityID: "user-2", Kind: "set_status", Payload: "inactive",
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if outcome.Status != mutationkit.OutcomeRejected || outcome.Reason != "forbidden" {
			t.Errorf("outcome = %+v, want rejected with reason forbidden", outcome)
		}
	})

	t.Run("unknown backend outcome maps to 5xx", func(t *testing.T) {
		outcome, err := client.Submit(context.Background(), mutationkit.MutationRequest{
			EntityID: "user-3", Kind: "set_status", Payload: "inactive",
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if outcome.Status != mutationkit.OutcomeUnknown {
			t.Errorf("outcome status = %q, want unknown", outcome.Status)
		}
	})
}

func TestHandlerRejectsMalformedRequests(t *testing.T) {
	applier := ApplierFunc(func(*http.Request, mutationkit.MutationRequest) (mutationkit.Outcome, error) {
		return mutationkit.Confirmed(nil), nil
	})
	srv := httptest.NewServer(NewRouter(NewHandler(applier, "user", testRegistry())))
	defer srv.Close()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "missing kind", body: `{"entity_id":"user-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/mutations", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Post() error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestRouterHealthz(t *testing.T) {
	applier := ApplierFunc(func(*http.Request, mutationkit.MutationRequest) (mutationkit.Outcome, error) {
		return mutationkit.Confirmed(nil), nil
	})
	srv := httptest.NewServer(NewRouter(NewHandler(applier, "user", testRegistry())))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}
