package geocode

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newProxiedApp(t *testing.T, upstream http.HandlerFunc) (*fiber.App, func()) {
	t.Helper()
	ts := httptest.NewServer(upstream)
	app := fiber.New()
	RegisterRoutes(app.Group("/tracking"), NewClient(ts.URL, ts.URL))
	return app, ts.Close
}

func TestReverseHandler(t *testing.T) {
	app, stop := newProxiedApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"MG Road"}`))
	})
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/tracking/reverse?lat=12.97&lng=77.59", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("reverse handler: %v %d", err, resp.StatusCode)
	}
}

func TestReverseHandlerBadCoords(t *testing.T) {
	app, stop := newProxiedApp(t, func(w http.ResponseWriter, r *http.Request) {})
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/tracking/reverse?lat=abc&lng=77.59", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}

	req = httptest.NewRequest(http.MethodGet, "/tracking/reverse?lat=95&lng=77.59", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for out-of-range lat")
	}
}

func TestSearchHandler(t *testing.T) {
	app, stop := newProxiedApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"place_id":1,"display_name":"A Garage","lat":"12.9","lon":"77.6"}]`))
	})
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/tracking/search?q=garage", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("search handler: %v %d", err, resp.StatusCode)
	}
}

func TestSearchHandlerMissingQuery(t *testing.T) {
	app, stop := newProxiedApp(t, func(w http.ResponseWriter, r *http.Request) {})
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/tracking/search", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestETAHandler(t *testing.T) {
	app, stop := newProxiedApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","routes":[{"duration":540,"distance":4200}]}`))
	})
	defer stop()

	req := httptest.NewRequest(http.MethodGet,
		"/tracking/eta?originLat=12.97&originLng=77.59&destLat=12.99&destLng=77.61", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("eta handler: %v %d", err, resp.StatusCode)
	}
}

func TestETAHandlerUpstreamError(t *testing.T) {
	app, stop := newProxiedApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer stop()

	req := httptest.NewRequest(http.MethodGet,
		"/tracking/eta?originLat=12.97&originLng=77.59&destLat=12.99&destLng=77.61", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected bad gateway")
	}
}
