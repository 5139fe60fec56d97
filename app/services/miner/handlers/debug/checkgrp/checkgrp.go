// Package checkgrp maintains the group of handlers for health checking.
package checkgrp

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/ardanlabs/blockminer/foundation/blockchain/state"
	"go.uber.org/zap"
)

// Handlers manages the set of check endpoints.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
	State *state.State
}

// Readiness checks if the mempool was loaded and the miner is ready to
// report on it.
func (h Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	statusCode := http.StatusOK
	if h.State == nil {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	data := struct {
		Status string `json:"status"`
	}{
		Status: status,
	}

	if err := response(w, statusCode, data); err != nil {
		h.Log.Errorw("readiness", "ERROR", err)
	}

	h.Log.Infow("readiness", "statusCode", statusCode, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)
}

// Liveness returns simple status info if the service is alive. If the
// app is deployed to a Kubernetes cluster, it will also return pod, node, and
// namespace details via the Downward API. The Kubernetes environment variables
// need to be set within your Pod/Deployment manifest.
func (h Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	data := struct {
		Status    string `json:"status,omitempty"`
		Build     string `json:"build,omitempty"`
		Host      string `json:"host,omitempty"`
		Pod       string `json:"pod,omitempty"`
		PodIP     string `json:"podIP,omitempty"`
		Node      string `json:"node,omitempty"`
		Namespace string `json:"namespace,omitempty"`
	}{
		Status:    "up",
		Build:     h.Build,
		Host:      host,
		Pod:       os.Getenv("KUBERNETES_PODNAME"),
		PodIP:     os.Getenv("KUBERNETES_NAMESPACE_POD_IP"),
		Node:      os.Getenv("KUBERNETES_NODENAME"),
		Namespace: os.Getenv("KUBERNETES_NAMESPACE"),
	}

	statusCode := http.StatusOK
	if err := response(w, statusCode, data); err != nil {
		h.Log.Errorw("liveness", "ERROR", err)
	}

	h.Log.Infow("liveness", "statusCode", statusCode, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)
}

// mempoolEntry is a mempool transaction as reported by the Mempool handler.
type mempoolEntry struct {
	ID    string `json:"txid"`
	Fee   uint64 `json:"fee"`
	Size  int    `json:"size"`
	Error string `json:"error,omitempty"`
}

// malformedRecord is a record that could not be parsed.
type malformedRecord struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Mempool returns the transactions loaded into the mempool with their
// fees, along with the records that could not be parsed.
func (h Handlers) Mempool(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Entries   []mempoolEntry    `json:"entries"`
		Malformed []malformedRecord `json:"malformed"`
	}{
		Entries:   []mempoolEntry{},
		Malformed: []malformedRecord{},
	}

	if h.State != nil {
		for _, e := range h.State.RetrieveMempool() {
			me := mempoolEntry{
				ID:   e.ID.String(),
				Fee:  e.Fee,
				Size: e.Size,
			}
			if e.Err != nil {
				me.Error = e.Err.Error()
			}
			data.Entries = append(data.Entries, me)
		}

		for _, rec := range h.State.RetrieveMalformed() {
			data.Malformed = append(data.Malformed, malformedRecord{Source: rec.Source, Error: rec.Malformed.Error()})
		}
	}

	statusCode := http.StatusOK
	if err := response(w, statusCode, data); err != nil {
		h.Log.Errorw("mempool", "ERROR", err)
	}

	h.Log.Infow("mempool", "statusCode", statusCode, "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)
}

func response(w http.ResponseWriter, statusCode int, data any) error {

	// Convert the response value to JSON.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	// Set the content type and headers once we know marshaling has succeeded.
	w.Header().Set("Content-Type", "application/json")

	// Write the status code to the response.
	w.WriteHeader(statusCode)

	// Send the result back to the client.
	if _, err := w.Write(jsonData); err != nil {
		return err
	}

	return nil
}
