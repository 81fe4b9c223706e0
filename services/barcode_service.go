package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"backend/logger"
	"backend/utils"
)

// BarcodeService wraps the food-safety open API that resolves a product
// barcode into nutrition facts. Lookups are retried with exponential
// backoff because the upstream is flaky under load.
type BarcodeService struct {
	apiKey  string
	baseURL string
	client  *http.Client

	maxRetries int
	backoff    time.Duration
}

func NewBarcodeService() *BarcodeService {
	base := os.Getenv("FOOD_SAFETY_BASE_URL")
	if base == "" {
		base = "https://various.foodsafetykorea.go.kr/api"
	}
	return &BarcodeService{
		apiKey:     os.Getenv("FOOD_SAFETY_API_KEY"),
		baseURL:    base,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// BarcodeFood is the provider response mapped to the internal macro shape.
// NovaGrade stays 0: barcode data carries no processing classification, so
// the caller supplies or infers it.
type BarcodeFood struct {
	Name         string       `json:"name"`
	Manufacturer string       `json:"manufacturer"`
	Barcode      string       `json:"barcode"`
	Calories     float64      `json:"calories"`
	ServingSize  float64      `json:"serving_size"`
	Macros       utils.Macros `json:"macros"`
}

type barcodeResponse struct {
	C005 struct {
		Row []map[string]string `json:"row"`
	} `json:"C005"`
}

// Lookup makes a single provider call.
func (s *BarcodeService) Lookup(barcode string) (*BarcodeFood, error) {
	u := fmt.Sprintf("%s/%s/C005/json/1/5/BARCODE_NO=%s",
		s.baseURL, s.apiKey, url.PathEscape(barcode))

	resp, err := s.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to call barcode API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read barcode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("barcode API error %d: %s", resp.StatusCode, string(body))
	}

	var br barcodeResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, fmt.Errorf("failed to parse barcode JSON: %w", err)
	}
	if len(br.C005.Row) == 0 {
		return nil, fmt.Errorf("barcode %s not registered", barcode)
	}

	return parseBarcodeRow(br.C005.Row[0]), nil
}

// LookupWithRetry retries up to 3 attempts with exponential backoff
// (1s, 2s) and surfaces the last error once attempts are exhausted.
func (s *BarcodeService) LookupWithRetry(barcode string) (*BarcodeFood, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		food, err := s.Lookup(barcode)
		if err == nil {
			return food, nil
		}
		lastErr = err
		logger.Warn("barcode lookup failed", "barcode", barcode, "attempt", attempt+1, "error", err)
		if attempt < s.maxRetries-1 {
			time.Sleep(s.backoff * (1 << attempt))
		}
	}
	return nil, lastErr
}

func parseBarcodeRow(row map[string]string) *BarcodeFood {
	f := func(key string) float64 {
		v, _ := strconv.ParseFloat(row[key], 64)
		return v
	}

	name := row["PRDLST_NM"]
	if name == "" {
		name = "unknown food"
	}
	serving := f("SERVING_SIZE")
	if serving == 0 {
		serving = 100
	}

	return &BarcodeFood{
		Name:         name,
		Manufacturer: row["BSSH_NM"],
		Barcode:      row["BARCODE_NO"],
		Calories:     f("NUTR_CONT1"),
		ServingSize:  serving,
		Macros: utils.Macros{
			Carb:     f("NUTR_CONT2"),
			Protein:  f("NUTR_CONT3"),
			Fat:      f("NUTR_CONT4"),
			Sodium:   f("NUTR_CONT5"),
			Sugar:    f("NUTR_CONT6"),
			TransFat: f("NUTR_CONT7"),
		},
	}
}
