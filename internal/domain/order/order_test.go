package order

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid input", func(t *testing.T) {
		o, err := New("ORDER1700000000001", "A", 100000)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.Status != StatusUnpaid {
			t.Fatalf("expected status Unpaid, got %s", o.Status)
		}
		if o.CreatedAt.IsZero() {
			t.Fatalf("expected CreatedAt to be set")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := New("ORDER1", "", 100)
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected ErrInvalidName, got %v", err)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		for _, amount := range []int64{0, -1} {
			_, err := New("ORDER1", "A", amount)
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
			}
		}
	})
}

func TestOrder_MarkPaid(t *testing.T) {
	t.Parallel()

	o, err := New("ORDER1700000000001", "A", 100000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !o.MarkPaid() {
		t.Fatalf("expected first MarkPaid to transition")
	}
	if o.Status != StatusPaid {
		t.Fatalf("expected status Paid, got %s", o.Status)
	}
	if o.PaidAt.IsZero() {
		t.Fatalf("expected PaidAt to be set")
	}

	paidAt := o.PaidAt
	if o.MarkPaid() {
		t.Fatalf("expected second MarkPaid to be a no-op")
	}
	if o.Status != StatusPaid {
		t.Fatalf("expected status to stay Paid")
	}
	if !o.PaidAt.Equal(paidAt) {
		t.Fatalf("expected PaidAt to be unchanged on re-signal")
	}
}

func TestOrder_Clone(t *testing.T) {
	t.Parallel()

	o, _ := New("ORDER1700000000001", "A", 100000)
	clone := o.Clone()

	clone.MarkPaid()
	if o.Paid() {
		t.Fatalf("mutating the clone must not touch the original")
	}
}
