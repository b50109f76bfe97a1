package aggregate

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"cashbook/internal/core"
)

func at(min int) core.DateValue {
	return core.StoredNow(time.Date(2024, 1, 1, 0, min, 0, 0, time.UTC))
}

func TestTransferActivityDefaults(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := TransferActivity(core.TransferRecord{ID: "t1", Receiver: "Ibrar", Amount: core.NumberAmount(5)}, time.UTC, now)
	if a.Name != "Admin → Ibrar" || a.Title != "Transfer" || a.Status != "Success" || a.Kind != core.ActivityTransfer {
		t.Fatalf("unexpected entry %+v", a)
	}
	if !a.Timestamp.Equal(now) {
		t.Fatalf("undated transfer should use now, got %v", a.Timestamp)
	}

	b := TransferActivity(core.TransferRecord{Sender: "Admin", PaymentMethod: "Bank", CreatedAt: at(5)}, time.UTC, now)
	if b.Name != "Admin →" || b.Title != "Bank" {
		t.Fatalf("unexpected entry %+v", b)
	}
	if !b.Timestamp.Equal(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)) {
		t.Fatalf("createdAt should be used when date is absent, got %v", b.Timestamp)
	}
}

func TestExpenseActivityDefaults(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		rec       core.ExpenseRecord
		wantName  string
		wantTitle string
	}{
		{core.ExpenseRecord{Name: "Ahmad", Title: "Fuel"}, "Ahmad", "Fuel"},
		{core.ExpenseRecord{Type: "Office"}, "Admin", "Office Expense"},
		{core.ExpenseRecord{}, "Admin", "Expense"},
	}
	for _, tc := range cases {
		a := ExpenseActivity(tc.rec, time.UTC, now)
		if a.Name != tc.wantName || a.Title != tc.wantTitle || a.Kind != core.ActivityExpense {
			t.Errorf("ExpenseActivity(%+v) = %+v", tc.rec, a)
		}
	}

	// createdAt wins over date
	a := ExpenseActivity(core.ExpenseRecord{CreatedAt: at(9), Date: core.TextDate("2023-06-01")}, time.UTC, now)
	if !a.Timestamp.Equal(time.Date(2024, 1, 1, 0, 9, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", a.Timestamp)
	}
}

func TestActivityMergeOrderAndLimit(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	var transfers []core.TransferRecord
	var expenses []core.ExpenseRecord
	for i := 0; i < 40; i++ {
		transfers = append(transfers, core.TransferRecord{ID: fmt.Sprintf("t%d", i), Receiver: "Ibrar", Date: at(2 * i)})
		expenses = append(expenses, core.ExpenseRecord{ID: fmt.Sprintf("e%d", i), Name: "Ahmad", CreatedAt: at(2*i + 1)})
	}

	feed := Activity(transfers, expenses, 0, time.UTC, now)
	if len(feed) != DefaultFeedSize {
		t.Fatalf("len = %d, want %d", len(feed), DefaultFeedSize)
	}
	for i := 1; i < len(feed); i++ {
		if feed[i].Timestamp.After(feed[i-1].Timestamp) {
			t.Fatalf("feed not sorted newest first at %d", i)
		}
	}
	if feed[0].ID != "e39" || feed[1].ID != "t39" {
		t.Fatalf("head = %s, %s", feed[0].ID, feed[1].ID)
	}
}

func TestActivityIndependentOfDeliveryOrder(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	transfers := []core.TransferRecord{{ID: "t1", Date: at(1)}, {ID: "t2", Date: at(3)}}
	expenses := []core.ExpenseRecord{{ID: "e1", CreatedAt: at(2)}, {ID: "e2", CreatedAt: at(4)}}

	a := Activity(transfers, expenses, 20, time.UTC, now)
	b := Activity(append([]core.TransferRecord(nil), transfers...), append([]core.ExpenseRecord(nil), expenses...), 20, time.UTC, now)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("merge differs:\n%v\n%v", a, b)
	}
	var ids []string
	for _, it := range a {
		ids = append(ids, it.ID)
	}
	if want := []string{"e2", "t2", "e1", "t1"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestFilterActivity(t *testing.T) {
	items := []core.Activity{
		{ID: "t1", Kind: core.ActivityTransfer},
		{ID: "e1", Kind: core.ActivityExpense},
		{ID: "t2", Kind: core.ActivityTransfer},
	}
	cases := []struct {
		in   string
		want int
	}{
		{"All", 3},
		{"", 3},
		{"transfers", 2},
		{"Expenses", 1},
	}
	for _, tc := range cases {
		f, err := ParseFilter(tc.in)
		if err != nil {
			t.Fatalf("ParseFilter(%q): %v", tc.in, err)
		}
		if got := FilterActivity(items, f); len(got) != tc.want {
			t.Errorf("FilterActivity(%q) len = %d, want %d", tc.in, len(got), tc.want)
		}
	}
	if _, err := ParseFilter("payments"); err == nil {
		t.Error("expected error for unknown filter")
	}
}
