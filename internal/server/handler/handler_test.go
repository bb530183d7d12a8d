package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/adserve"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/markup"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/server/handler"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/server/router"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/slot"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/config"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/health"
)

// segment pulls name=value out of the ad network's ;-separated request path.
func segment(requestURI, name string) string {
	for _, part := range strings.Split(requestURI, ";") {
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return v
		}
	}
	return ""
}

// newAdNetwork fakes the ad network. Zones starting with "nofill" get
// NO_FILL; everything else is filled with a creative naming the zone.
func newAdNetwork(t *testing.T, referrers chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if referrers != nil {
			referrers <- segment(r.RequestURI, "referrer")
		}
		zone := segment(r.RequestURI, "setID")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(zone, "nofill") {
			w.Write([]byte(`{"status":"NO_FILL"}`))
			return
		}
		json.NewEncoder(w).Encode(adserve.Response{
			Status: adserve.StatusSuccess,
			Placements: &adserve.Placements{Placement1: &adserve.Placement{
				EligibleURL: "https://px.example/e/" + zone,
				ViewableURL: "https://px.example/v/" + zone,
				Body:        `<div class="creative">` + zone + `</div>`,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newServer(t *testing.T, adBaseURL string) *httptest.Server {
	t.Helper()
	cfg := config.Default().AdServe
	cfg.BaseURL = adBaseURL
	client, err := adserve.NewClient(cfg, nil)
	require.NoError(t, err)

	h := handler.New(slot.Options{Fetcher: client})
	srv := httptest.NewServer(router.New(h, health.NewChecker(), nil, 0))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSlotFragmentSuccess(t *testing.T) {
	referrers := make(chan string, 1)
	ads := newAdNetwork(t, referrers)
	srv := newServer(t, ads.URL+"/adserve/")

	resp, body := get(t, srv.URL+"/api/v1/slots/zone1?class=sidebar", http.Header{
		"Referer": {"https://news.example/story 1"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, adserve.StatusSuccess, resp.Header.Get(handler.StatusHeader))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "https%3A%2F%2Fnews.example%2Fstory%201", <-referrers)

	assert.Equal(t, 1, strings.Count(body, `<style id="`+markup.StyleID+`">`))
	assert.Contains(t, body, `<div class="sidebar"><img src="https://px.example/e/zone1"`)
	assert.Equal(t, 2, strings.Count(body, `class="`+markup.PixelClass+`"`))
	assert.True(t, strings.HasSuffix(body, `<div class="creative">zone1</div></div>`))
}

func TestSlotFragmentNoFillIsSilent(t *testing.T) {
	ads := newAdNetwork(t, nil)
	srv := newServer(t, ads.URL+"/adserve/")

	resp, body := get(t, srv.URL+"/api/v1/slots/nofill-1", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "NO_FILL", resp.Header.Get(handler.StatusHeader))
	assert.True(t, strings.HasSuffix(body, "<div></div>"))
	assert.NotContains(t, body, "<img")
}

func TestSlotFragmentAdNetworkDown(t *testing.T) {
	ads := httptest.NewServer(http.NotFoundHandler())
	base := ads.URL + "/adserve/"
	ads.Close()
	srv := newServer(t, base)

	resp, body := get(t, srv.URL+"/api/v1/slots/zone1", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, adserve.StatusFetchError, resp.Header.Get(handler.StatusHeader))
	assert.NotContains(t, body, "<img")
}

func TestPageMountsEveryZoneWithOneStylesheet(t *testing.T) {
	ads := newAdNetwork(t, nil)
	srv := newServer(t, ads.URL+"/adserve/")

	resp, body := get(t, srv.URL+"/api/v1/page?zone=a&zone=nofill-b&zone=c&title=Home", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(body, "<style"))
	assert.Equal(t, 4, strings.Count(body, `class="`+markup.PixelClass+`"`))
	assert.Contains(t, body, "<title>Home</title>")

	ia := strings.Index(body, `<div class="creative">a</div>`)
	ic := strings.Index(body, `<div class="creative">c</div>`)
	require.NotEqual(t, -1, ia)
	require.NotEqual(t, -1, ic)
	assert.Less(t, ia, ic, "containers keep zone order")
	assert.Contains(t, body, "<div></div>")
}

func TestPageValidation(t *testing.T) {
	ads := newAdNetwork(t, nil)
	srv := newServer(t, ads.URL+"/adserve/")

	resp, body := get(t, srv.URL+"/api/v1/page", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"at least one zone is required"}`, body)

	resp, _ = get(t, srv.URL+"/api/v1/page?zone=a&zone=", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthRoutes(t *testing.T) {
	ads := newAdNetwork(t, nil)
	srv := newServer(t, ads.URL+"/adserve/")

	resp, _ := get(t, srv.URL+"/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = get(t, srv.URL+"/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
