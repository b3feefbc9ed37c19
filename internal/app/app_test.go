package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"paydesk/pkg/config"
	"paydesk/pkg/models"
	"paydesk/pkg/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStorage(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{name: "memory", kind: config.StorageMemory},
		{name: "file", kind: config.StorageFile},
		{name: "default", kind: ""},
		{name: "unknown", kind: "s3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.SessionStorage = tt.kind

			st, closeFn, err := OpenStorage(cfg)
			if closeFn == nil {
				t.Fatal("close func must not be nil")
			}
			defer closeFn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.kind == config.StorageMemory {
				if _, ok := st.(*storage.MemoryStorage); !ok {
					t.Fatalf("got %T", st)
				}
			} else if _, ok := st.(*storage.FileStorage); !ok {
				t.Fatalf("got %T", st)
			}
		})
	}
}

func TestOpenStorageRedisUsesConfiguredKey(t *testing.T) {
	addr := os.Getenv("PAYDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAYDESK_TEST_REDIS_ADDR not set")
	}

	cfg := config.Default()
	cfg.SessionStorage = config.StorageRedis
	cfg.RedisAddr = addr
	cfg.RedisPassword = os.Getenv("PAYDESK_TEST_REDIS_PASSWORD")
	cfg.RedisKey = storage.RedisKey + ":app-test:" + uuid.NewString()

	st, closeFn, err := OpenStorage(cfg)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	defer closeFn()
	if err := st.Save([]byte(`{"token":""}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer st.Remove()

	base, err := storage.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		t.Fatal(err)
	}
	defer base.Close()
	if _, err := base.WithKey(cfg.RedisKey).Load(); err != nil {
		t.Fatalf("configured key not written: %v", err)
	}
}

func TestNewWiresMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.SessionStorage = config.StorageMemory

	rt, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	rt.Store.SaveSession("tok", models.Profile{FirstName: "Ada"}, nil)
	if got := testutil.ToFloat64(rt.Metrics.SessionMutations.WithLabelValues("save_session")); got != 1 {
		t.Fatalf("session mutations=%v", got)
	}

	h, err := rt.Handler()
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("profile status=%d", rr.Code)
	}
	if got := testutil.ToFloat64(rt.Metrics.Navigations.WithLabelValues("profile", "allow")); got != 1 {
		t.Fatalf("navigations=%v", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.APIBaseURL = "not a url"
	if _, err := New(cfg, quietLogger()); err == nil {
		t.Fatal("expected validation error")
	}
}
