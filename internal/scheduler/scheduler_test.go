package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/stock-portal/internal/chart"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/models"
	"github.com/bobmcallan/stock-portal/internal/session"
)

type stubBackend struct {
	updates   int32
	lists     int32
	updateErr error
}

func (b *stubBackend) ListStocks(context.Context) ([]models.Stock, error) {
	atomic.AddInt32(&b.lists, 1)
	return []models.Stock{{Symbol: "AAA", Name: "Alpha"}}, nil
}

func (b *stubBackend) TriggerUpdate(context.Context) (string, error) {
	atomic.AddInt32(&b.updates, 1)
	return "ok", b.updateErr
}

func (b *stubBackend) ChartData(context.Context, string, int) (models.ChartSeries, error) {
	return models.ChartSeries{}, errors.New("unused")
}

func newSessions(b *stubBackend) *session.Manager {
	return session.NewManager(func() *dashboard.Controller {
		return dashboard.New(dashboard.Deps{API: b, Charts: chart.NewFactory(16, 16)}, dashboard.Options{})
	}, time.Minute, nil)
}

func TestRegister_UpdateDisabledByDefault(t *testing.T) {
	s := New(context.Background(), &stubBackend{}, nil, nil)
	if err := s.Register(""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if n := s.Entries(); n != 1 {
		t.Errorf("expected only the cleanup entry, got %d", n)
	}
}

func TestRegister_WithUpdateSpec(t *testing.T) {
	s := New(context.Background(), &stubBackend{}, nil, nil)
	if err := s.Register("0 30 18 * * 1-5"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if n := s.Entries(); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := New(context.Background(), &stubBackend{}, nil, nil)
	if err := s.Register("every tuesday"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestRunUpdateNow_ReloadsLiveSessions(t *testing.T) {
	b := &stubBackend{}
	sessions := newSessions(b)
	defer sessions.Close()
	sessions.GetOrCreate(context.Background(), "")
	sessions.GetOrCreate(context.Background(), "")
	before := atomic.LoadInt32(&b.lists)

	New(context.Background(), b, sessions, nil).RunUpdateNow()

	if n := atomic.LoadInt32(&b.updates); n != 1 {
		t.Errorf("expected 1 update, got %d", n)
	}
	if n := atomic.LoadInt32(&b.lists) - before; n != 2 {
		t.Errorf("expected 2 session reloads, got %d", n)
	}
}

func TestRunUpdateNow_FailureSkipsReload(t *testing.T) {
	b := &stubBackend{updateErr: errors.New("collector offline")}
	sessions := newSessions(b)
	defer sessions.Close()
	sessions.GetOrCreate(context.Background(), "")
	before := atomic.LoadInt32(&b.lists)

	New(context.Background(), b, sessions, nil).RunUpdateNow()

	if n := atomic.LoadInt32(&b.lists) - before; n != 0 {
		t.Errorf("expected no reloads after failed update, got %d", n)
	}
}

func TestStartStop(t *testing.T) {
	s := New(context.Background(), &stubBackend{}, nil, nil)
	if err := s.Register(""); err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop()
}
