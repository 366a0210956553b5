package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/dispatcher"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

var errConflict = errors.New("conflict")

func classifier(err error) int {
	if errors.Is(err, errConflict) {
		return http.StatusConflict
	}
	return 0
}

type payload struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

func serve(t *testing.T, h http.Handler, method string, path string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Player", "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := make(map[string]interface{})
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Answer is not a JSON document: \"%s\"", rec.Body.String())
	}

	return rec, out
}

func TestServeRoute(t *testing.T) {
	log := logger.NewNullLogger()
	router := dispatcher.NewRouter(log)

	router.HandleFunc("/items/{item}", ServeRoute(func(r *http.Request, vars RouteVars) (interface{}, error) {
		switch vars.Elem("item") {
		case "busy":
			return nil, errConflict
		case "broken":
			return nil, errors.New("disk on fire")
		}
		return map[string]string{"item": vars.Elem("item"), "sort": vars.Param("sort")}, nil
	}, classifier, log)).Methods("GET")

	rec, out := serve(t, router, "GET", "/items/i1?sort=asc", "")
	if rec.Code != http.StatusOK || out["item"] != "i1" || out["sort"] != "asc" {
		t.Fatalf("Unexpected answer %d %v", rec.Code, out)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("Unexpected content type \"%s\"", rec.Header().Get("Content-Type"))
	}

	rec, out = serve(t, router, "GET", "/items/busy", "")
	if rec.Code != http.StatusConflict || out["error"] != "conflict" {
		t.Fatalf("Unexpected answer %d %v", rec.Code, out)
	}

	rec, out = serve(t, router, "GET", "/items/broken", "")
	if rec.Code != http.StatusInternalServerError || out["error"] != InternalServerErrorString() {
		t.Fatalf("Internal errors should not leak, got %d %v", rec.Code, out)
	}
}

func TestServeCreationRoute(t *testing.T) {
	log := logger.NewNullLogger()

	h := RequireHeader(log, "X-Player", ServeCreationRoute(func(r *http.Request, vars RouteVars) (string, interface{}, error) {
		var in payload
		if err := ExtractData(r, &in); err != nil {
			return "", nil, err
		}
		return "/items/" + in.Name, map[string]interface{}{"owner": Header(r, "X-Player"), "amount": in.Amount}, nil
	}, classifier, log))

	rec, out := serve(t, h, "POST", "/items", `{"name":"i2","amount":3}`)
	if rec.Code != http.StatusCreated || rec.Header().Get("Location") != "/items/i2" {
		t.Fatalf("Unexpected answer %d (location: \"%s\")", rec.Code, rec.Header().Get("Location"))
	}
	if out["owner"] != "u1" || out["amount"] != float64(3) {
		t.Fatalf("Unexpected document %v", out)
	}

	for _, body := range []string{``, `{"name":`, `{"name":"i2","unknown":1}`, `{"name":"a"}{"name":"b"}`} {
		rec, _ = serve(t, h, "POST", "/items", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Body \"%s\" should be rejected, got %d", body, rec.Code)
		}
	}
}

func TestRequireHeader(t *testing.T) {
	called := false
	h := RequireHeader(logger.NewNullLogger(), "X-Player", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Player", "   ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("Blank header should be rejected, got %d", rec.Code)
	}
}
