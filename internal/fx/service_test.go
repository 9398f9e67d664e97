package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mockRateRepo struct {
	saved   []Rate
	saveErr error
}

func (m *mockRateRepo) Save(_ context.Context, rate Rate) (Rate, error) {
	if m.saveErr != nil {
		return Rate{}, m.saveErr
	}
	rate.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, rate)
	return rate, nil
}

func (m *mockRateRepo) Get(_ context.Context, id int64) (Rate, error) {
	for _, r := range m.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return Rate{}, ErrNotFound
}

func (m *mockRateRepo) Latest(_ context.Context) (Rate, error) {
	if len(m.saved) == 0 {
		return Rate{}, ErrNotFound
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *mockRateRepo) List(_ context.Context, _ int) ([]Rate, error) {
	return m.saved, nil
}

func TestServiceRecordStoresNewRecord(t *testing.T) {
	repo := &mockRateRepo{}
	svc := NewService(repo)

	first, err := svc.Record(context.Background(), decimal.NewFromInt(2800), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Record(context.Background(), decimal.NewFromInt(2850), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID == second.ID {
		t.Error("recording a new rate must create a new record")
	}
	if len(repo.saved) != 2 {
		t.Errorf("saved %d rates, want 2", len(repo.saved))
	}

	old, err := svc.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !old.Value.Equal(decimal.NewFromInt(2800)) {
		t.Errorf("historical rate = %s, want 2800 (rates are immutable)", old.Value)
	}
}

func TestServiceRecordRejectsZero(t *testing.T) {
	repo := &mockRateRepo{}
	svc := NewService(repo)

	_, err := svc.Record(context.Background(), decimal.Zero, time.Now())
	if !errors.Is(err, ErrNonPositiveRate) {
		t.Errorf("error = %v, want ErrNonPositiveRate", err)
	}
	if len(repo.saved) != 0 {
		t.Error("invalid rate must not be stored")
	}
}

func TestServiceLatestNotFound(t *testing.T) {
	svc := NewService(&mockRateRepo{})
	if _, err := svc.Latest(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
