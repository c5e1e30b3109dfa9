package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type readiness struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// HandleReadyCheck responds with HTTP 503 and the failure reason while the
// readiness check returns an error.
func HandleReadyCheck(readinessCheck func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := readinessCheck(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readiness{
				Reason: err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, readiness{Ready: true})
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logs.Error(errors.New("encoding http response failed").
			WithTag("status", status).
			Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
