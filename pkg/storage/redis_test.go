package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"paydesk/pkg/models"
	"paydesk/pkg/session"
)

func profileFixture() models.Profile {
	return models.Profile{FirstName: "Ada", LastName: "Lovelace", FullName: "Ada Lovelace", Email: "ada@example.com"}
}

func TestRedisStorageIntegration(t *testing.T) {
	addr := os.Getenv("PAYDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAYDESK_TEST_REDIS_ADDR not set")
	}

	base, err := NewRedisStorage(addr, os.Getenv("PAYDESK_TEST_REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("NewRedisStorage: %v", err)
	}
	t.Cleanup(func() { base.Close() })

	rs := base.WithKey(RedisKey + ":test:" + uuid.NewString())
	t.Cleanup(func() { rs.Remove() })

	if _, err := rs.Load(); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load err=%v want ErrNotFound", err)
	}

	st := session.NewStore(rs)
	st.SaveSession("tok_redis", profileFixture(), nil)

	restored := session.NewStore(rs).Get()
	if restored.Token != "tok_redis" || !restored.IsAuthenticated {
		t.Fatalf("restored=%+v", restored)
	}

	if err := rs.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := rs.Load(); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load after Remove err=%v want ErrNotFound", err)
	}
}
