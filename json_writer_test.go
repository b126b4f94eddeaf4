package finance

import (
	"encoding/json"
	"testing"

	"github.com/etnz/finance/date"
	"github.com/shopspring/decimal"
)

func TestJsonObjectWriter(t *testing.T) {
	t.Run("empty object", func(t *testing.T) {
		var w jsonObjectWriter
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := "{}"; string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("simple object", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 1)
		w.Append("b", "hello")
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":1,"b":"hello"}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("optional fields", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 0) // assess that a zero value is actually added.
		w.Optional("b", "")
		w.Optional("c", 0)
		w.Optional("d", "hello")
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":0,"d":"hello"}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("error is sticky", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", func() {})
		w.Append("b", 2)
		if _, err := w.MarshalJSON(); err == nil {
			t.Error("MarshalJSON() succeeded, want an error for an unmarshalable value")
		}
	})
}

func TestTransaction_JSON(t *testing.T) {
	tx := Transaction{
		ID:        "t1",
		AccountID: "a",
		Type:      Expense,
		Amount:    decimal.RequireFromString("12.5"),
		Date:      date.New(2026, 10, 1),
	}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	want := `{"id":"t1","type":"expense","accountId":"a","amount":"12.5","date":"2026-10-01"}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if got.ID != tx.ID || got.Type != tx.Type || !got.Amount.Equal(tx.Amount) || got.Date != tx.Date || got.ToAccountID != "" {
		t.Errorf("json.Unmarshal() = %+v, want %+v", got, tx)
	}
}
