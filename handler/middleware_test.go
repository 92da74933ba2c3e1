package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nibernar/project-service/ecode"
	"github.com/nibernar/project-service/net/resp"
)

func TestRecovery_WritesErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gin.DefaultErrorWriter = io.Discard

	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/boom", func(*gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("got content type %q, want application/json", ct)
	}

	var body resp.Exception
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Code != ecode.ServerErr {
		t.Errorf("got code %d, want %d", body.Code, ecode.ServerErr)
	}
	if body.Message != ecode.Text(ecode.ServerErr) {
		t.Errorf("got message %q, want %q", body.Message, ecode.Text(ecode.ServerErr))
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic cause must not leak into the response body")
	}
}

func TestRecovery_PassesThroughNormalRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/ok", func(c *gin.Context) {
		resp.Success(c.Writer, "fine")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
}
