package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"

	ExpenseOffice   ExpenseType = "Office"
	ExpensePersonal ExpenseType = "Personal"

	// DefaultSender is written on every transfer; transfers always originate from the admin.
	DefaultSender = "Admin"
)

type (
	Role        string
	ExpenseType string

	// TransferRecord is a cash handover from the admin to a tracked person.
	// Only Date is written by this service. CreatedAt and Timestamp exist on
	// older records and are consulted when Date is absent.
	TransferRecord struct {
		ID            string    `json:"-"`
		Sender        string    `json:"sender,omitempty"`
		Receiver      string    `json:"receiver,omitempty"`
		PaymentMethod string    `json:"paymentMethod,omitempty"`
		Remarks       string    `json:"remarks,omitempty"`
		Amount        Amount    `json:"amount"`
		Date          DateValue `json:"date"`
		CreatedAt     DateValue `json:"createdAt"`
		Timestamp     DateValue `json:"timestamp"`
	}

	// ExpenseRecord is money spent by a person. Date is the calendar day chosen
	// by the user; CreatedAt is the authoritative ordering key.
	ExpenseRecord struct {
		ID        string    `json:"-"`
		Name      string    `json:"name,omitempty"`
		Email     string    `json:"email,omitempty"`
		Role      Role      `json:"role,omitempty"`
		Title     string    `json:"title,omitempty"`
		Type      string    `json:"type,omitempty"`
		Remarks   string    `json:"remarks,omitempty"`
		Amount    Amount    `json:"amount"`
		Date      DateValue `json:"date"`
		CreatedAt DateValue `json:"createdAt"`
	}
)

var (
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyReceiver  = errors.New("empty receiver")
	ErrEmptyTitle     = errors.New("empty title")
	ErrTitleTooLong   = errors.New("title too long (max 200 characters)")
	ErrInvalidType    = errors.New("invalid expense type")
	ErrInvalidDay     = errors.New("invalid day")
	ErrRemarksTooLong = errors.New("remarks too long (max 500 characters)")
)

// ParseExpenseType accepts office/personal in any case.
func ParseExpenseType(s string) (ExpenseType, error) {
	switch NormalizeName(s) {
	case "office":
		return ExpenseOffice, nil
	case "personal":
		return ExpensePersonal, nil
	default:
		return "", ErrInvalidType
	}
}

func validatePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a transfer about to be written. Records read back from the
// store are never validated.
func (t TransferRecord) Validate() error {
	if strings.TrimSpace(t.Receiver) == "" {
		return ErrEmptyReceiver
	}
	if err := validatePositive(t.Amount.Value()); err != nil {
		return err
	}
	if len(t.Remarks) > 500 {
		return ErrRemarksTooLong
	}
	return nil
}

// Validate checks an expense about to be written.
func (e ExpenseRecord) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if _, err := ParseExpenseType(e.Type); err != nil {
		return err
	}
	if err := validatePositive(e.Amount.Value()); err != nil {
		return err
	}
	if len(e.Remarks) > 500 {
		return ErrRemarksTooLong
	}
	if e.Date.Kind() == DateText {
		if _, err := ParseDay(e.Date.Text()); err != nil {
			return err
		}
	}
	return nil
}
