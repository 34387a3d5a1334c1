package rtms_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/resilience"
	"github.com/UnknownOlympus/realty-atlas/internal/rtms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var aptTrade = rtms.Endpoints[0]

func fastPolicy() resilience.Policy {
	return resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func envelopeXML(code, msg string, total int, items ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><response><header>`)
	fmt.Fprintf(&sb, "<resultCode>%s</resultCode><resultMsg>%s</resultMsg></header><body><items>", code, msg)
	for _, it := range items {
		sb.WriteString("<item>" + it + "</item>")
	}
	fmt.Fprintf(&sb, "</items><numOfRows>1000</numOfRows><pageNo>1</pageNo><totalCount>%d</totalCount></body></response>", total)
	return sb.String()
}

func newClient(t *testing.T, srv *httptest.Server, pageSize int) (*rtms.Client, *metrics.Metrics) {
	t.Helper()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	client := rtms.NewClientWithHTTP(srv.Client(), rtms.Config{
		BaseURL:    srv.URL,
		ServiceKey: "key+with/slash==",
		PageSize:   pageSize,
		Policy:     fastPolicy(),
	}, slog.Default(), appMetrics)

	return client, appMetrics
}

func TestFetchAll_Pagination(t *testing.T) {
	t.Parallel()

	const total, pageSize = 2500, 1000
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, aptTrade.Path, r.URL.Path)
		assert.Equal(t, "key+with/slash==", r.URL.Query().Get("serviceKey"))
		assert.Contains(t, r.URL.RawQuery, "serviceKey=key%2Bwith%2Fslash%3D%3D")
		assert.Equal(t, "11680", r.URL.Query().Get("LAWD_CD"))
		assert.Equal(t, "202504", r.URL.Query().Get("DEAL_YMD"))
		assert.Equal(t, strconv.Itoa(pageSize), r.URL.Query().Get("numOfRows"))

		pageNo, _ := strconv.Atoi(r.URL.Query().Get("pageNo"))
		count := min(pageSize, total-(pageNo-1)*pageSize)
		items := make([]string, 0, count)
		for i := range count {
			items = append(items, fmt.Sprintf("<aptNm>apt-%d-%d</aptNm>", pageNo, i))
		}
		_, _ = w.Write([]byte(envelopeXML("000", "OK", total, items...)))
	}))
	defer srv.Close()

	client, appMetrics := newClient(t, srv, pageSize)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.NoError(t, err)
	assert.Len(t, items, total)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "apt-1-0", items[0]["aptNm"])
	assert.Equal(t, "apt-3-499", items[total-1]["aptNm"])
	assert.InDelta(t, 3, testutil.ToFloat64(appMetrics.RTMSPages.WithLabelValues("apt_tr")), 0)
}

func TestFetchAll_StopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("pageNo") == "1" {
			_, _ = w.Write([]byte(envelopeXML("00", "NORMAL SERVICE.", 50, "<aptNm>a</aptNm>", "<aptNm>b</aptNm>")))
			return
		}
		// The endpoint misreports its total; the second page is empty.
		_, _ = w.Write([]byte(envelopeXML("00", "NORMAL SERVICE.", 50)))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv, 2)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAll_NoItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(envelopeXML("000", "OK", 0)))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv, 1000)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchAll_SingleItemAndFields(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		item := "<aptNm>래미안</aptNm><dealAmount>  82,000 </dealAmount><aptDong> </aptDong><umdNm>역삼동</umdNm>"
		_, _ = w.Write([]byte(envelopeXML("000", "OK", 1, item)))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv, 1000)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "래미안", items[0]["aptNm"])
	assert.Equal(t, "82,000", items[0]["dealAmount"])
	assert.NotContains(t, items[0], "aptDong")
}

func TestFetchAll_RetriesApplicationError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(envelopeXML("22", "LIMITED NUMBER OF SERVICE REQUESTS EXCEEDS ERROR.", 0)))
			return
		}
		_, _ = w.Write([]byte(envelopeXML("000", "OK", 1, "<aptNm>a</aptNm>")))
	}))
	defer srv.Close()

	client, appMetrics := newClient(t, srv, 1000)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(appMetrics.RTMSRetries.WithLabelValues("apt_tr")), 0)
}

func TestFetchAll_ExhaustedRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(envelopeXML("30", "SERVICE KEY IS NOT REGISTERED ERROR.", 0)))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv, 1000)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.Error(t, err)
	assert.Nil(t, items)
	assert.Equal(t, int32(3), calls.Load())

	var upErr *rtms.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "30", upErr.Code)
	assert.Equal(t, "SERVICE KEY IS NOT REGISTERED ERROR.", upErr.Message)
	assert.Equal(t, 1, upErr.Page)
	assert.Contains(t, err.Error(), "SERVICE KEY IS NOT REGISTERED ERROR.")
}

func TestFetchAll_RetriesHTTPStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(envelopeXML("000", "OK", 1, "<aptNm>a</aptNm>")))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv, 1000)
	items, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAll_MalformedResponseIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<OpenAPI_ServiceResponse><cmmMsgHeader><errMsg>SERVICE ERROR</errMsg>` +
			`</cmmMsgHeader></OpenAPI_ServiceResponse>`))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv, 1000)
	_, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	require.ErrorIs(t, err, rtms.ErrMalformedResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchAll_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	client, _ := newClient(t, srv, 1000)
	srv.Close()

	_, err := client.FetchAll(t.Context(), aptTrade, "11680", "202504")

	var upErr *rtms.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Empty(t, upErr.Code)
	assert.Contains(t, err.Error(), "failed to execute RTMS request")
}

func TestEndpoints(t *testing.T) {
	t.Parallel()

	require.Len(t, rtms.Endpoints, 6)
	seen := map[string]bool{}
	for _, ep := range rtms.Endpoints {
		assert.NotEmpty(t, ep.Variant.Label())
		assert.True(t, strings.HasPrefix(ep.Path, "/RTMSDataSvc"))
		assert.False(t, seen[ep.Path])
		seen[ep.Path] = true
	}
}
