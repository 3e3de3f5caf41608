package recovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nimburion/docmanager/pkg/middleware/requestid"
	"github.com/nimburion/docmanager/pkg/observability/logger"
)

type captureLogger struct {
	mu     sync.Mutex
	errors []map[string]any
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Warn(string, ...any)  {}

func (l *captureLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := map[string]any{"msg": msg}
	for i := 0; i+1 < len(args); i += 2 {
		entry[args[i].(string)] = args[i+1]
	}
	l.errors = append(l.errors, entry)
}

func (l *captureLogger) With(...any) logger.Logger                 { return l }
func (l *captureLogger) WithContext(context.Context) logger.Logger { return l }

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := &captureLogger{}
	r := gin.New()
	r.Use(requestid.RequestID(), Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("store exploded") })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestid.RequestIDHeader, "req-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal_server_error" || body["request_id"] != "req-9" {
		t.Errorf("unexpected body %v", body)
	}
	if len(log.errors) != 1 || log.errors[0]["panic"] != "store exploded" || log.errors[0]["stack"] == "" {
		t.Errorf("unexpected log %v", log.errors)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("server must keep serving, got %d", rec.Code)
	}
}

func TestRecovery_AfterWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(logger.Nop()))
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusAccepted, "partial")
		panic("late failure")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))
	if rec.Code != http.StatusAccepted || rec.Body.String() != "partial" {
		t.Errorf("written response must be left alone, got %d %q", rec.Code, rec.Body.String())
	}
}
