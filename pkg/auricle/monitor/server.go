// Package monitor exposes a small HTTP server with live decode statistics,
// the latest telemetry and status records, and signal trace plots.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/auricle-labs/auricle/pkg/muse"
)

const defaultTraceLength = 1024

type streamStats struct {
	Samples   int       `json:"samples"`
	LastIndex int       `json:"last_index"`
	LastSeen  time.Time `json:"last_seen"`
}

type Server struct {
	params      *muse.Params
	srv         *http.Server
	traceLength int

	mu            sync.RWMutex
	stats         map[muse.Stream]*streamStats
	traces        map[muse.Stream]*trace
	lastTelemetry *muse.Sample
	lastStatus    muse.StatusRecord
}

func NewServer(params *muse.Params, port, traceLength int) *Server {
	if traceLength <= 0 {
		traceLength = defaultTraceLength
	}
	return &Server{
		params:      params,
		srv:         &http.Server{Addr: fmt.Sprintf(":%d", port)},
		traceLength: traceLength,
		stats:       make(map[muse.Stream]*streamStats),
		traces:      make(map[muse.Stream]*trace),
	}
}

// Observe records one emitted sample.  Non-blocking; safe for concurrent
// use with the HTTP handlers.
func (s *Server) Observe(sample *muse.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[sample.Stream]
	if !ok {
		st = &streamStats{}
		s.stats[sample.Stream] = st
	}
	st.Samples++
	st.LastIndex = sample.Index
	st.LastSeen = sample.Timestamp

	switch sample.Stream {
	case muse.StreamTelemetry:
		s.lastTelemetry = sample
	case muse.StreamStatus:
		s.lastStatus = sample.Record
	default:
		tr, ok := s.traces[sample.Stream]
		if !ok {
			unit := ""
			if cfg, found := s.params.Streams[sample.Stream]; found && len(cfg.Units) > 0 {
				unit = cfg.Units[0]
			}
			tr = newTrace(s.traceLength, unit)
			s.traces[sample.Stream] = tr
		}
		// First channel only; enough to eyeball signal quality.
		tr.append(sample.Data.RawRowView(0))
	}
}

func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()

	s.srv.Handler = s.router()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) router() *httprouter.Router {
	handler := httprouter.New()

	handler.GET("/api/streams", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		writeJSON(w, s.stats)
	})

	handler.GET("/api/telemetry", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.lastTelemetry == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		cfg := s.params.Streams[muse.StreamTelemetry]
		fields := make(map[string]interface{}, len(cfg.ChannelNames)+1)
		for i, name := range cfg.ChannelNames {
			fields[name] = s.lastTelemetry.Data.At(i, 0)
		}
		fields["sample_index"] = s.lastTelemetry.Index
		writeJSON(w, fields)
	})

	handler.GET("/api/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.lastStatus == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, s.lastStatus)
	})

	handler.GET("/plot/:stream", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		stream := muse.Stream(params.ByName("stream"))

		s.mu.RLock()
		tr, ok := s.traces[stream]
		var vals []float64
		var unit string
		if ok {
			vals = tr.values()
			unit = tr.unit
		}
		s.mu.RUnlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		img, err := renderTrace(string(stream), unit, vals)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Add("Content-Type", "image/png")
		w.Write(img)
	})

	return handler
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
