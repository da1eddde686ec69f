package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alejandrodnm/carfair/internal/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"listings": s.svc.DatasetSize(),
	})
}

// GET /v1/evaluate?brand=Toyota&model=Vios&condition=used&mileage=50000&price=450000000
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	q, price, err := parseEvaluateQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.svc.Evaluate(r.Context(), q, price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationDTO(ev))
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toOverviewDTO(s.svc.Overview()))
}

func (s *Server) handleBrands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"brands": nonNil(s.svc.Brands())})
}

func (s *Server) handleBrand(w http.ResponseWriter, r *http.Request) {
	bi, err := s.svc.Brand(r.PathValue("brand"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBrandDTO(bi))
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	brand := r.PathValue("brand")
	models := s.svc.Models(brand)
	if len(models) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("no data found for brand %s: %w", brand, domain.ErrBrandNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand": brand, "models": models})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	brand, model := r.PathValue("brand"), r.PathValue("model")
	writeJSON(w, http.StatusOK, map[string]any{
		"brand": brand,
		"model": model,
		"years": nonNil(s.svc.Years(brand, model)),
	})
}

// GET /v1/trends?brand=Honda&model=City
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	brand, model, err := requireBrandModel(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tr, err := s.svc.Trends(brand, model)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrendDTO(tr))
}

// GET /v1/selection?brand=Toyota&model=Vios[&year=2020][&mileage=45000]
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	brand, model, err := requireBrandModel(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	params := r.URL.Query()
	year, err := optionalInt(params.Get("year"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("year: %w", err))
		return
	}
	mileage, err := optionalInt(params.Get("mileage"), -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("mileage: %w", err))
		return
	}
	st, err := s.svc.Selection(brand, model, year, mileage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSelectionDTO(st))
}

// --- parsing ---

func parseEvaluateQuery(r *http.Request) (domain.Query, float64, error) {
	brand, model, err := requireBrandModel(r)
	if err != nil {
		return domain.Query{}, 0, err
	}
	params := r.URL.Query()

	mileage, err := strconv.Atoi(strings.TrimSpace(params.Get("mileage")))
	if err != nil {
		return domain.Query{}, 0, fmt.Errorf("mileage must be an integer: %q", params.Get("mileage"))
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(params.Get("price")), 64)
	if err != nil {
		return domain.Query{}, 0, fmt.Errorf("price must be a number: %q", params.Get("price"))
	}

	cond := domain.ConditionForMileage(mileage)
	if raw := params.Get("condition"); raw != "" {
		if cond, err = domain.ParseCondition(raw); err != nil {
			return domain.Query{}, 0, err
		}
	}
	return domain.Query{Brand: brand, Model: model, Condition: cond, Mileage: mileage}, price, nil
}

func requireBrandModel(r *http.Request) (string, string, error) {
	params := r.URL.Query()
	brand := strings.TrimSpace(params.Get("brand"))
	model := strings.TrimSpace(params.Get("model"))
	if brand == "" || model == "" {
		return "", "", errors.New("brand and model are required")
	}
	return brand, model, nil
}

func optionalInt(raw string, def int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

// --- respuestas ---

// statusFor traduce los errores del dominio a códigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBrandNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientData),
		errors.Is(err, domain.ErrDegenerateMarket),
		errors.Is(err, domain.ErrInsufficientTrendData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("http handler failed", "err", err)
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
