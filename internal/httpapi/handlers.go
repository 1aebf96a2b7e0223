package httpapi

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mirrorledger/textoracle/internal/contract"
	"github.com/mirrorledger/textoracle/internal/ledger"
)

// jobResponse is the operator's view of one outstanding job box. State is
// derived from the stored value the same way the off-ledger actors derive
// it: empty means awaiting text, the sentinel prefix means completed.
type jobResponse struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	Counter uint64 `json:"counter"`
	State   string `json:"state"`
	Value   string `json:"value,omitempty"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	names, err := s.svc.ApplicationBoxes(r.Context(), s.appID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ret := make([]jobResponse, 0, len(names))
	for _, name := range names {
		item := jobResponse{ID: hex.EncodeToString(name)}
		if owner, ok := contract.JobOwner(name); ok {
			item.Owner = owner.String()
		}
		if counter, ok := contract.JobCounter(name); ok {
			item.Counter = counter
		}

		value, err := s.svc.ApplicationBox(r.Context(), s.appID, name)
		if errors.Is(err, ledger.ErrUnknownBox) {
			// Box raced a purge between the list and the read; skip it.
			continue
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		item.Value = string(value)
		item.State = jobState(string(value))
		ret = append(ret, item)
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleCounter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, err := s.svc.ApplicationGlobal(r.Context(), s.appID, contract.CounterKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var counter uint64
	if len(raw) == contract.CounterSize {
		counter = binary.BigEndian.Uint64(raw)
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"counter": counter})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func jobState(value string) string {
	switch {
	case value == "":
		return "awaiting_text"
	case strings.HasPrefix(value, contract.ResultPrefix):
		return "completed"
	default:
		return "pending_classification"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
