package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/horecawatch/engine/config"
	"github.com/horecawatch/engine/internal/domain"
	"github.com/horecawatch/engine/internal/usecase"
)

type stubProducts struct {
	products []domain.Product
	nextID   int64
}

func (s *stubProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (s *stubProducts) ListProducts(_ context.Context) ([]domain.Product, error) {
	return s.products, nil
}

func (s *stubProducts) FindOrCreateProduct(_ context.Context, normalizedName, brand, category string) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].NormalizedName == normalizedName {
			return &s.products[i], nil
		}
	}
	s.nextID++
	p := domain.Product{ID: s.nextID + 100, NormalizedName: normalizedName, Brand: brand, Category: category}
	s.products = append(s.products, p)
	return &s.products[len(s.products)-1], nil
}

type stubObservations struct {
	saved []domain.Observation
}

func (s *stubObservations) SaveObservation(_ context.Context, obs *domain.Observation) error {
	s.saved = append(s.saved, *obs)
	return nil
}

func (s *stubObservations) LatestBefore(context.Context, int64, string, time.Time) (*domain.Observation, error) {
	return nil, nil
}

func (s *stubObservations) Latest(context.Context, int64, string) (*domain.Observation, error) {
	return nil, nil
}

func (s *stubObservations) LatestPerSite(context.Context, int64, []string) (map[string]domain.Observation, error) {
	return map[string]domain.Observation{}, nil
}

func (s *stubObservations) SeenURLs(context.Context, string, time.Time) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *stubObservations) History(context.Context, int64, string, time.Time) ([]domain.Observation, error) {
	return nil, nil
}

func (s *stubObservations) CountDistinctProducts(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (s *stubObservations) CountFirstSeen(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (s *stubObservations) CountProductsOnSite(context.Context, string) (int, error) {
	return 0, nil
}

func (s *stubObservations) AveragePrice(context.Context, string, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type stubChanges struct{}

func (stubChanges) SavePriceChange(context.Context, *domain.PriceChangeEvent) error { return nil }
func (stubChanges) SaveStockChange(context.Context, *domain.StockChangeEvent) error { return nil }
func (stubChanges) PriceChangesBetween(context.Context, time.Time, time.Time, int) ([]domain.PriceChangeEvent, error) {
	return nil, nil
}
func (stubChanges) CountPriceChanges(context.Context, time.Time, time.Time, int) (int, error) {
	return 0, nil
}
func (stubChanges) CountStockChanges(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}
func (stubChanges) CountPriceChangesSince(context.Context, time.Time) (int, error) { return 0, nil }
func (stubChanges) UnnotifiedPriceChanges(context.Context, int) ([]domain.PriceChangeEvent, error) {
	return nil, nil
}
func (stubChanges) MarkNotified(_ context.Context, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

type stubCache struct{}

func (stubCache) Get(context.Context, string) (*domain.MatchResult, error) {
	return nil, domain.ErrCacheMiss
}
func (stubCache) Set(context.Context, string, domain.MatchResult) error { return nil }
func (stubCache) Delete(context.Context, string) error                  { return nil }
func (stubCache) Clear(context.Context) error                           { return nil }

type stubMappings struct {
	added []domain.ManualMapping
}

func (s *stubMappings) Get(string) (domain.ManualMapping, bool) { return domain.ManualMapping{}, false }

func (s *stubMappings) Add(m domain.ManualMapping) error {
	if m.SourceKey == "" || m.TargetProductID <= 0 {
		return domain.ErrInvalidRequest
	}
	s.added = append(s.added, m)
	return nil
}

func (s *stubMappings) All() []domain.ManualMapping { return s.added }

func newTestRouter(t *testing.T) (*gin.Engine, *stubProducts, *stubObservations, *stubMappings) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	products := &stubProducts{products: []domain.Product{
		{ID: 1, NormalizedName: usecase.NormalizeName("Fagor Endustriyel Ocak CG9-41"), Brand: "Fagor"},
		{ID: 2, NormalizedName: usecase.NormalizeName("Bosch PXY875DC1E Ocak"), Brand: "Bosch"},
	}}
	observations := &stubObservations{}
	mappings := &stubMappings{}

	resolver := usecase.NewResolver(mappings, stubCache{}, 2, zerolog.Nop())
	detector := usecase.NewDetector(products, observations, stubChanges{}, nil, usecase.DefaultDetectorConfig(), zerolog.Nop())
	handler := NewHandler(resolver, detector, products, mappings, zerolog.Nop())

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Server.AllowedOrigins = []string{"http://localhost:*"}
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000

	return SetupRouter(cfg, handler, zerolog.Nop()), products, observations, mappings
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %s, want healthy", resp["status"])
	}
	if resp["service"] != "horecawatch-engine" {
		t.Errorf("service = %s, want horecawatch-engine", resp["service"])
	}
}

func TestResolveEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	t.Run("matches a close listing", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/resolve", domain.Listing{
			RawName: "Fagor Endustriyel Ocak CG9-41",
			Site:    "cafemarkt",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var resp struct {
			Result domain.MatchResult `json:"result"`
			Tier   string             `json:"tier"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Result.ProductID == nil || *resp.Result.ProductID != 1 {
			t.Errorf("ProductID = %v, want 1", resp.Result.ProductID)
		}
		if resp.Result.Confidence < domain.MatchThreshold {
			t.Errorf("Confidence = %.2f, want >= %.0f", resp.Result.Confidence, domain.MatchThreshold)
		}
	})

	t.Run("rejects a listing without a name", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/resolve", domain.Listing{Site: "cafemarkt"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestResolveBatchEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/resolve/batch", []domain.Listing{
		{RawName: "Fagor Endustriyel Ocak CG9-41", Site: "cafemarkt"},
		{RawName: "Tamamen Alakasiz Bir Urun Adi", Site: "cafemarkt"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var batch domain.BatchResult
	if err := json.Unmarshal(w.Body.Bytes(), &batch); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(batch.Matched) != 1 {
		t.Errorf("Matched = %d, want 1", len(batch.Matched))
	}
	if len(batch.Unmatched) != 1 {
		t.Errorf("Unmatched = %d, want 1", len(batch.Unmatched))
	}
}

func TestObserveEndpoint(t *testing.T) {
	router, products, observations, _ := newTestRouter(t)

	t.Run("records an observation for a matched listing", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/observations", domain.Listing{
			RawName:     "Fagor Endustriyel Ocak CG9-41",
			Site:        "cafemarkt",
			Price:       decimal.NewFromInt(15000),
			StockStatus: "Stokta",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		if len(observations.saved) != 1 {
			t.Fatalf("saved observations = %d, want 1", len(observations.saved))
		}
		if observations.saved[0].ProductID != 1 {
			t.Errorf("ProductID = %d, want 1", observations.saved[0].ProductID)
		}
	})

	t.Run("creates a product for an unmatched listing", func(t *testing.T) {
		before := len(products.products)

		w := doJSON(t, router, http.MethodPost, "/api/v1/observations", domain.Listing{
			RawName: "Arçelik Mikrodalga Fırın MD-554",
			Site:    "horecamarket",
			Price:   decimal.NewFromInt(4200),
		})

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		if len(products.products) != before+1 {
			t.Errorf("catalog size = %d, want %d", len(products.products), before+1)
		}

		var resp struct {
			Result domain.MatchResult `json:"result"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Result.Reason != "new_product" {
			t.Errorf("Reason = %s, want new_product", resp.Result.Reason)
		}
	})
}

func TestMappingsEndpoints(t *testing.T) {
	router, _, _, mappings := newTestRouter(t)

	t.Run("adds a valid mapping", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/mappings", domain.ManualMapping{
			SourceKey:       "cafemarkt_123",
			TargetProductID: 456,
			Confidence:      100,
		})

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusCreated, w.Body.String())
		}
		if len(mappings.added) != 1 {
			t.Errorf("stored mappings = %d, want 1", len(mappings.added))
		}
	})

	t.Run("rejects an invalid mapping", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/mappings", domain.ManualMapping{
			SourceKey: "cafemarkt_456",
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("lists mappings", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/mappings", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("count = %d, want 1", resp.Count)
		}
	})
}

func TestDuplicatesEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/duplicates", map[string]any{
		"listings": []domain.Listing{
			{RawName: "Fagor Endustriyel Ocak CG9-41", Site: "cafemarkt"},
			{RawName: "Fagor Endüstriyel Ocak CG9-41", Site: "horecamarket"},
			{RawName: "Bosch PXY875DC1E Ocak", Site: "cafemarkt"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Pairs []domain.DuplicatePair `json:"pairs"`
		Count int                    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}

func TestMarkNotifiedEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/changes/notified", map[string]any{
		"ids": []int64{1, 2, 3},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Updated != 3 {
		t.Errorf("updated = %d, want 3", resp.Updated)
	}
}

func TestPriceLeaderEndpointValidation(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	t.Run("requires sites", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/products/1/leader", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown product returns not found", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/products/99/leader?sites=cafemarkt", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
