package core

import (
	"errors"
	"strings"
	"testing"
)

func TestTransferValidate(t *testing.T) {
	good := TransferRecord{Sender: DefaultSender, Receiver: "Ibrar", Amount: NumberAmount(500)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		rec  TransferRecord
		want error
	}{
		{"empty receiver", TransferRecord{Receiver: "  ", Amount: NumberAmount(1)}, ErrEmptyReceiver},
		{"zero amount", TransferRecord{Receiver: "Ibrar", Amount: NumberAmount(0)}, ErrInvalidAmount},
		{"negative amount", TransferRecord{Receiver: "Ibrar", Amount: NumberAmount(-5)}, ErrInvalidAmount},
		{"missing amount", TransferRecord{Receiver: "Ibrar"}, ErrInvalidAmount},
		{"long remarks", TransferRecord{Receiver: "Ibrar", Amount: NumberAmount(1), Remarks: strings.Repeat("x", 501)}, ErrRemarksTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.rec.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	good := ExpenseRecord{Title: "Lunch", Type: "office", Amount: TextAmount("120"), Date: TextDate("2024-03-05")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		rec  ExpenseRecord
		want error
	}{
		{"empty title", ExpenseRecord{Title: " ", Type: "Office", Amount: NumberAmount(1)}, ErrEmptyTitle},
		{"long title", ExpenseRecord{Title: strings.Repeat("a", 201), Type: "Office", Amount: NumberAmount(1)}, ErrTitleTooLong},
		{"unknown type", ExpenseRecord{Title: "a", Type: "travel", Amount: NumberAmount(1)}, ErrInvalidType},
		{"bad amount", ExpenseRecord{Title: "a", Type: "Personal", Amount: TextAmount("abc")}, ErrInvalidAmount},
		{"bad day", ExpenseRecord{Title: "a", Type: "Personal", Amount: NumberAmount(1), Date: TextDate("05/03/2024")}, ErrInvalidDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.rec.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseExpenseType(t *testing.T) {
	for in, want := range map[string]ExpenseType{"office": ExpenseOffice, " OFFICE ": ExpenseOffice, "Personal": ExpensePersonal} {
		got, err := ParseExpenseType(in)
		if err != nil || got != want {
			t.Errorf("ParseExpenseType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseExpenseType("misc"); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Ibrar ":  "ibrar",
		"AHMAD":     "ahmad",
		"":          "",
		"\tAdmin\n": "admin",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
	if !SameName(" ibrar", "IBRAR ") {
		t.Error("SameName should ignore case and surrounding space")
	}
}

func TestDaysIn(t *testing.T) {
	cases := []struct {
		year  int
		month int
		want  int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tc := range cases {
		if got := DaysIn(tc.year, monthOf(tc.month)); got != tc.want {
			t.Errorf("DaysIn(%d, %d) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}
