// Package receiver implements an HTTP endpoint accepting anonymized DICOM
// instances, for testing senders and for small local archives.
package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/metrics"
	"github.com/mrsinham/dicomsend/internal/upload"
)

// DefaultMaxBodyBytes bounds a single upload.
const DefaultMaxBodyBytes = 512 << 20

// Receipt is the JSON body answered for a stored instance.
type Receipt struct {
	Study  string `json:"study"`
	Series string `json:"series"`
	SOP    string `json:"sop"`
	Bytes  int    `json:"bytes"`
}

// Server accepts POSTed instances and stores those that are anonymized.
type Server struct {
	Store        Store
	Decoder      dicom.Decoder
	MaxBodyBytes int64
	Log          zerolog.Logger
	Metrics      *metrics.Recorder
}

// Handler returns the routes:
//
//	POST /studies   store one application/dicom instance
//	GET  /healthz   liveness
//	GET  /metrics   Prometheus metrics
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", s.Metrics.Handler())
	router.Post("/studies", s.receive)
	return router
}

func (s *Server) receive(w http.ResponseWriter, r *http.Request) {
	log := s.Log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != upload.ContentType {
		s.reject(w, log, http.StatusUnsupportedMediaType, "content type must be "+upload.ContentType)
		return
	}

	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.reject(w, log, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		s.reject(w, log, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	decoder := s.Decoder
	if decoder == nil {
		decoder = dicom.Codec{}
	}
	index, err := decoder.Decode(data)
	if err != nil {
		s.reject(w, log, http.StatusBadRequest, err.Error())
		return
	}
	if !dicom.Redacted(data, index) {
		s.reject(w, log, http.StatusUnprocessableEntity, "identifying attributes are not redacted")
		return
	}

	receipt := Receipt{Bytes: len(data)}
	var ok [3]bool
	receipt.Study, ok[0] = index.String(dicom.StudyInstanceUID.Tag)
	receipt.Series, ok[1] = index.String(dicom.SeriesInstanceUID.Tag)
	receipt.SOP, ok[2] = index.String(dicom.SOPInstanceUID.Tag)
	if !ok[0] || !ok[1] || !ok[2] {
		s.reject(w, log, http.StatusBadRequest, "missing study, series or instance UID")
		return
	}

	path, err := s.Store.Save(receipt.Study, receipt.Series, receipt.SOP, data)
	switch {
	case errors.Is(err, ErrBadUID):
		s.reject(w, log, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("store instance")
		s.reject(w, log, http.StatusInternalServerError, "store failed")
		return
	}

	log.Info().Str("sop", receipt.SOP).Str("path", path).Msg("instance stored")
	s.Metrics.Received("stored")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(receipt)
}

func (s *Server) reject(w http.ResponseWriter, log zerolog.Logger, code int, msg string) {
	log.Warn().Int("status", code).Msg(msg)
	s.Metrics.Received(fmt.Sprint(code))
	http.Error(w, msg, code)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully. ready, if set, receives the bound address.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log zerolog.Logger, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
