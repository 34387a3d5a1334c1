package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"golang.org/x/time/rate"
)

// KakaoBaseURL is the Kakao Local address search endpoint.
const KakaoBaseURL = "https://dapi.kakao.com/v2/local/search/address.json"

// KakaoProvider implements geocoding using the Kakao Local API.
type KakaoProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Kakao API
	apiKey  string        // REST API key
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// Common errors for Kakao provider.
var (
	ErrKakaoEmptyResponse = errors.New("kakao API returned no documents")
	ErrKakaoEmptyAddress  = errors.New("kakao provider got empty address")
	ErrKakaoInvalidCoords = errors.New("kakao API returned invalid coordinates")
	ErrKakaoUnauthorized  = errors.New("kakao API unauthorized (invalid REST API key)")
)

// kakaoResponse is the part of the address search response used for geocoding.
type kakaoResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"` // longitude
		Y           string `json:"y"` // latitude
	} `json:"documents"`
}

// NewKakaoProvider creates a new Kakao geocoding provider. A rateLimit of zero disables limiting.
func NewKakaoProvider(apiKey string, rateLimit int, log *slog.Logger) *KakaoProvider {
	const timeout = 10

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	return NewKakaoProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		KakaoBaseURL,
		apiKey,
		limiter,
		log,
	)
}

// NewKakaoProviderWithClient allows injecting custom HTTP client and endpoint.
func NewKakaoProviderWithClient(
	client HTTPClient,
	baseURL string,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *KakaoProvider {
	return &KakaoProvider{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: limiter,
	}
}

// Geocode converts address into geographic coordinates using the first matching document.
func (kp *KakaoProvider) Geocode(
	ctx context.Context,
	address string,
) (*models.Coordinates, error) {
	if err := kp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	kp.log.DebugContext(ctx, "Geocoding using Kakao", "address", address)

	if address == "" {
		return nil, ErrKakaoEmptyAddress
	}

	reqURL, err := url.Parse(kp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("query", address)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "KakaoAK "+kp.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := kp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrKakaoUnauthorized
	default:
		body, _ := io.ReadAll(resp.Body)
		kp.log.ErrorContext(ctx, "Kakao API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("kakao API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result kakaoResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode kakao response: %w", err)
	}

	if len(result.Documents) == 0 {
		return nil, ErrKakaoEmptyResponse
	}

	doc := result.Documents[0]
	lng, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %q", ErrKakaoInvalidCoords, doc.X)
	}
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %q", ErrKakaoInvalidCoords, doc.Y)
	}

	kp.log.DebugContext(ctx, "Kakao found result", "address", address, "match", doc.AddressName, "lat", lat, "lng", lng)

	return &models.Coordinates{
		Latitude:  lat,
		Longitude: lng,
	}, nil
}
