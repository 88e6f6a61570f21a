package main

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/hostbroker/pkg/boundary"
)

// envelopeInput mirrors cmd/hostbroker's stdin envelope shape (spec.md
// §6), here decoded from the HTTP request body instead.
type envelopeInput struct {
	Template *struct {
		TemplateID   string `json:"templateId"`
		MachineCount int    `json:"machineCount"`
	} `json:"template,omitempty"`
	Requests []struct {
		RequestID string `json:"requestId"`
	} `json:"requests,omitempty"`
	Machines []struct {
		MachineID string `json:"machineId"`
	} `json:"machines,omitempty"`
	All bool `json:"all,omitempty"`
}

// newAPIHandler builds the HTTP mux exposing the five boundary operations
// (spec.md §6) as POST endpoints, each accepting and returning the same
// JSON envelope shape the script-mode CLI uses on stdin/stdout — the
// external contract is identical across both binaries, only the
// transport differs.
func newAPIHandler(svc *boundary.Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/getAvailableTemplates", handleGetAvailableTemplates(svc))
	mux.HandleFunc("/v1/requestMachines", handleRequestMachines(svc))
	mux.HandleFunc("/v1/requestReturnMachines", handleRequestReturnMachines(svc))
	mux.HandleFunc("/v1/getRequestStatus", handleGetRequestStatus(svc))
	mux.HandleFunc("/v1/getReturnRequests", handleGetReturnRequests(svc))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeEnvelope(r *http.Request) (envelopeInput, error) {
	var in envelopeInput
	if r.ContentLength == 0 {
		return in, nil
	}
	err := json.NewDecoder(r.Body).Decode(&in)
	return in, err
}

func handleGetAvailableTemplates(svc *boundary.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		long := r.URL.Query().Get("long") == "true"
		out, failure := svc.GetAvailableTemplates(long)
		if failure != nil {
			writeJSON(w, http.StatusBadRequest, failure)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleRequestMachines(svc *boundary.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeEnvelope(r)
		if err != nil || in.Template == nil {
			http.Error(w, `expected {"template": {"templateId", "machineCount"}}`, http.StatusBadRequest)
			return
		}
		out, failure := svc.RequestMachines(r.Context(), boundary.RequestMachinesInput{
			TemplateID:   in.Template.TemplateID,
			MachineCount: in.Template.MachineCount,
		})
		if failure != nil {
			writeJSON(w, http.StatusBadRequest, failure)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleRequestReturnMachines(svc *boundary.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeEnvelope(r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		machineIDs := make([]string, 0, len(in.Machines))
		for _, m := range in.Machines {
			machineIDs = append(machineIDs, m.MachineID)
		}
		out, failure := svc.RequestReturnMachines(r.Context(), boundary.RequestReturnMachinesInput{
			MachineIDs: machineIDs,
			All:        in.All,
		})
		if failure != nil {
			writeJSON(w, http.StatusBadRequest, failure)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetRequestStatus(svc *boundary.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeEnvelope(r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		requestIDs := make([]string, 0, len(in.Requests))
		for _, req := range in.Requests {
			requestIDs = append(requestIDs, req.RequestID)
		}
		out, failure := svc.GetRequestStatus(r.Context(), boundary.GetRequestStatusInput{
			RequestIDs: requestIDs,
			All:        in.All,
		})
		if failure != nil {
			writeJSON(w, http.StatusBadRequest, failure)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetReturnRequests(svc *boundary.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, failure := svc.GetReturnRequests()
		if failure != nil {
			writeJSON(w, http.StatusBadRequest, failure)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
