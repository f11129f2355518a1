package passreset_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/authutil"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"github.com/dalemusser/meraki/internal/app/system/passreset"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tokenStore struct {
	id      primitive.ObjectID
	digest  string
	expires time.Time
	err     error
}

func (s *tokenStore) SetResetToken(_ context.Context, id primitive.ObjectID, digest string, expiresAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.id, s.digest, s.expires = id, digest, expiresAt
	return nil
}

type capturePub struct {
	key  string
	body []byte
}

func (p *capturePub) Publish(_ context.Context, key string, event any) error {
	p.key = key
	b, err := json.Marshal(event)
	p.body = b
	return err
}

func (p *capturePub) Close() error { return nil }

func TestSend(t *testing.T) {
	store := &tokenStore{}
	pub := &capturePub{}
	svc := passreset.New(store, pub, "https://meraki.example/", nil)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	u := models.User{ID: primitive.NewObjectID(), Email: "ana@example.com", Name: "Ana"}
	if err := svc.Send(context.Background(), u, notify.ReasonSelf); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if store.id != u.ID || !store.expires.Equal(now.Add(time.Hour)) {
		t.Errorf("stored token for %v expiring %v", store.id, store.expires)
	}
	if pub.key != notify.KeyPasswordResetRequested {
		t.Errorf("key = %q", pub.key)
	}

	var ev notify.PasswordResetRequested
	if err := json.Unmarshal(pub.body, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if !strings.HasPrefix(ev.ResetLink, "https://meraki.example/reset-password?token=") {
		t.Fatalf("link = %q", ev.ResetLink)
	}

	link, _ := url.Parse(ev.ResetLink)
	token := link.Query().Get("token")
	if authutil.HashToken(token) != store.digest {
		t.Error("stored digest does not match the emailed token")
	}
	if store.digest == token {
		t.Error("raw token must not be stored")
	}
}

func TestSend_StoreFailureDoesNotPublish(t *testing.T) {
	pub := &capturePub{}
	svc := passreset.New(&tokenStore{err: errors.New("down")}, pub, "https://meraki.example", nil)

	if err := svc.Send(context.Background(), models.User{ID: primitive.NewObjectID()}, notify.ReasonAdmin); err == nil {
		t.Fatal("expected error")
	}
	if pub.key != "" {
		t.Error("email published despite store failure")
	}
}
