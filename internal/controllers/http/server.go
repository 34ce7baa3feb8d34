package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/overlap"
	"github.com/Agrid-Dev/docalc/internal/ports"
)

// maxBodyBytes bounds request bodies; a year of hourly values for a handful
// of buildings fits well below it.
const maxBodyBytes = 32 << 20

type Server struct {
	svc    ports.DistrictService
	srv    *http.Server
	logger zerolog.Logger
}

// New returns a runnable server. metrics may be nil.
func New(svc ports.DistrictService, addr string, metrics http.Handler, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, logger: logger}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/buildings", s.handleGetBuildings)
	mux.HandleFunc("GET /v1/cop", s.handleGetCOP)

	// Write
	mux.HandleFunc("POST /v1/buildings", s.handlePostBuildings)
	mux.HandleFunc("POST /v1/cop", s.handlePostCOP)

	// Stateless computation on posted profiles
	mux.HandleFunc("POST /v1/doc", s.handlePostDOC)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type reportDTO struct {
	DistrictID  string              `json:"district_id"`
	Steps       int                 `json:"steps"`
	DistrictDOC float64             `json:"district_doc"`
	DurationDOC float64             `json:"duration_doc"`
	MeanBESDOC  float64             `json:"mean_bes_doc"`
	NetworkDOC  float64             `json:"network_doc"`
	Buildings   []buildingReportDTO `json:"buildings"`
}

type buildingReportDTO struct {
	Name   string  `json:"name"`
	BESDOC float64 `json:"bes_doc"`
}

type buildingDTO struct {
	Name string    `json:"name"`
	Heat []float64 `json:"heat"`
	Cool []float64 `json:"cool"`
}

type copDTO struct {
	HeatPump float64 `json:"heat_pump"`
	Chiller  float64 `json:"chiller"`
}

type docRequest struct {
	Heat []float64 `json:"heat"`
	Cool []float64 `json:"cool"`
}

type docResponse struct {
	DOC         float64 `json:"doc"`
	DurationDOC float64 `json:"duration_doc"`
}

func toDTO(r district.Report) reportDTO {
	dto := reportDTO{
		DistrictID:  r.DistrictID,
		Steps:       r.Steps,
		DistrictDOC: r.DistrictDOC,
		DurationDOC: r.DurationDOC,
		MeanBESDOC:  r.MeanBESDOC,
		NetworkDOC:  r.NetworkDOC,
		Buildings:   make([]buildingReportDTO, len(r.Buildings)),
	}
	for i, b := range r.Buildings {
		dto.Buildings[i] = buildingReportDTO{Name: b.Name, BESDOC: b.BESDOC}
	}
	return dto
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toDTO(s.svc.Report()))
}

func (s *Server) handleGetBuildings(w http.ResponseWriter, _ *http.Request) {
	buildings := s.svc.Buildings()
	out := make([]buildingDTO, len(buildings))
	for i, b := range buildings {
		out[i] = buildingDTO{Name: b.Name, Heat: b.Heat, Cool: b.Cool}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCOP(w http.ResponseWriter, _ *http.Request) {
	c := s.svc.COP()
	writeJSON(w, http.StatusOK, copDTO{HeatPump: c.HeatPump, Chiller: c.Chiller})
}

func (s *Server) handlePostBuildings(w http.ResponseWriter, r *http.Request) {
	// body: {"value": [{"name": "a", "heat": [...], "cool": [...]}]}
	postValue(s, w, r, func(v []buildingDTO) (district.Report, error) {
		buildings := make([]district.Building, len(v))
		for i, b := range v {
			buildings[i] = district.Building{Name: b.Name, Heat: b.Heat, Cool: b.Cool}
		}
		return s.svc.SetBuildings(buildings)
	})
}

func (s *Server) handlePostCOP(w http.ResponseWriter, r *http.Request) {
	// body: {"value": {"heat_pump": 4, "chiller": 5}}
	postValue(s, w, r, func(v copDTO) (district.Report, error) {
		return s.svc.SetCOP(overlap.COP{HeatPump: v.HeatPump, Chiller: v.Chiller})
	})
}

func (s *Server) handlePostDOC(w http.ResponseWriter, r *http.Request) {
	var req docRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	doc, err := overlap.DOC(req.Heat, req.Cool)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	ddoc, err := overlap.DurationDOC(req.Heat, req.Cool)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, docResponse{DOC: doc, DurationDOC: ddoc})
}

// ---- generic helpers ----

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) (district.Report, error)) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	rep, err := apply(*req.Value)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("update rejected")
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toDTO(rep))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
