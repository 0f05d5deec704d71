package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"price-recommender/cache"
	"price-recommender/models"
	"price-recommender/storage"
	"price-recommender/utils"
)

// CachePrefix namespaces every cached response; flush it after a recommend run.
const CachePrefix = "rec:"

const (
	defaultLimit = 10
	maxLimit     = 100
)

// RecommendationHandler serves read-only lookups over the recommendation table.
type RecommendationHandler struct {
	store  storage.RecommendationReader
	cache  cache.Client
	ttl    time.Duration
	logger *utils.Logger
}

// NewRecommendationHandler creates a handler. A nil cache disables caching.
func NewRecommendationHandler(store storage.RecommendationReader, c cache.Client, ttl time.Duration, logger *utils.Logger) *RecommendationHandler {
	if c == nil {
		c = cache.NopClient{}
	}
	return &RecommendationHandler{store: store, cache: c, ttl: ttl, logger: logger}
}

// CategoryResponseDTO is the body of GET /recommendations/{category}.
type CategoryResponseDTO struct {
	Category         string      `json:"category"`
	RecommendedPrice json.Number `json:"recommendedPrice"`
}

// RecommendationDTO is one row of GET /recommendations.
type RecommendationDTO struct {
	ProductMasterID string      `json:"productMasterId"`
	Category        string      `json:"category"`
	Price           json.Number `json:"price"`
	Date            string      `json:"date"`
}

// GetByCategory handles GET /recommendations/{category}.
func (h *RecommendationHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, err := categoryParam(r)
	if err != nil || category == "" {
		h.writeError(w, http.StatusBadRequest, "invalid category", "")
		return
	}

	key := cache.Key("rec", "category", category)
	if h.serveCached(w, r, key) {
		return
	}

	rec, err := h.store.FindByCategory(ctx, category)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Category not found", "")
		return
	}
	if err != nil {
		h.logger.Error("[api] find category %q: %v", category, err)
		h.writeError(w, http.StatusInternalServerError, "lookup failed", "")
		return
	}

	h.writeCached(w, r, key, CategoryResponseDTO{
		Category:         rec.Category,
		RecommendedPrice: json.Number(rec.Price.String()),
	})
}

// List handles GET /recommendations?skip=&limit=. An empty table is 404; a
// page past the end is an empty array.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip, err := queryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid skip", "skip must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit < 1 {
		h.writeError(w, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	key := cache.Key("rec", "list", strconv.Itoa(skip), strconv.Itoa(limit))
	if h.serveCached(w, r, key) {
		return
	}

	total, err := h.store.Count(ctx)
	if err != nil {
		h.logger.Error("[api] count recommendations: %v", err)
		h.writeError(w, http.StatusInternalServerError, "lookup failed", "")
		return
	}
	if total == 0 {
		h.writeError(w, http.StatusNotFound, "No recommendations found", "")
		return
	}

	recs, err := h.store.List(ctx, skip, limit)
	if err != nil {
		h.logger.Error("[api] list recommendations: %v", err)
		h.writeError(w, http.StatusInternalServerError, "lookup failed", "")
		return
	}

	h.writeCached(w, r, key, toDTOs(recs))
}

func toDTOs(recs []models.PriceRecommendation) []RecommendationDTO {
	out := make([]RecommendationDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RecommendationDTO{
			ProductMasterID: rec.ProductMasterID,
			Category:        rec.Category,
			Price:           json.Number(rec.Price.StringFixed(2)),
			Date:            rec.Date.Format("2006-01-02"),
		})
	}
	return out
}

// categoryParam returns the decoded {category} segment. chi matches against
// RawPath when the request carries one (an escaped '/' for instance), and
// only then is the parameter still escaped.
func categoryParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "category")
	if r.URL.RawPath == "" {
		return raw, nil
	}
	return url.PathUnescape(raw)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (h *RecommendationHandler) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	body, err := h.cache.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("[api] cache get %s: %v", key, err)
		}
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "HIT")
	w.Write(body)
	return true
}

func (h *RecommendationHandler) writeCached(w http.ResponseWriter, r *http.Request, key string, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("[api] encode response: %v", err)
		h.writeError(w, http.StatusInternalServerError, "encode failed", "")
		return
	}
	if err := h.cache.Set(r.Context(), key, buf.Bytes(), h.ttl); err != nil {
		h.logger.Warn("[api] cache set %s: %v", key, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(buf.Bytes())
}

func (h *RecommendationHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"detail": message,
	}
	if detail != "" {
		resp["message"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
