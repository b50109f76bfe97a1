package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/identity"
	"cashbook/internal/log"
	"cashbook/internal/store"

	"github.com/shopspring/decimal"
)

// PageSize is the number of history rows per page.
const PageSize = 10

var (
	ErrForbidden       = errors.New("only admin can record transfers")
	ErrUnknownReceiver = errors.New("receiver is not on the roster")
)

// ViewUpdater is told about writes so dashboard views stay current.
type ViewUpdater interface {
	Reload() uint64
	ApplyTransfer(receiver string, amount decimal.Decimal) bool
}

// TransferInput is a transfer as submitted by the admin.
type TransferInput struct {
	Receiver      string `json:"receiver"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Remarks       string `json:"remarks"`
}

// ExpenseInput is an expense as submitted by any roster member. Date is a
// YYYY-MM-DD day and defaults to today.
type ExpenseInput struct {
	Title   string `json:"title"`
	Amount  string `json:"amount"`
	Type    string `json:"type"`
	Remarks string `json:"remarks"`
	Date    string `json:"date"`
}

// RecordService writes new records and lists record history.
type RecordService struct {
	store  store.RecordStore
	roster *identity.Roster
	views  ViewUpdater
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
}

type RecordOption func(*RecordService)

func WithViews(v ViewUpdater) RecordOption {
	return func(s *RecordService) { s.views = v }
}

func WithLocation(loc *time.Location) RecordOption {
	return func(s *RecordService) { s.loc = loc }
}

func WithClock(now func() time.Time) RecordOption {
	return func(s *RecordService) { s.now = now }
}

func WithLogger(l *log.Logger) RecordOption {
	return func(s *RecordService) { s.logger = l }
}

func NewRecordService(st store.RecordStore, roster *identity.Roster, opts ...RecordOption) *RecordService {
	s := &RecordService{
		store:  st,
		roster: roster,
		loc:    time.Local,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentRecords)
	return s
}

// CreateTransfer records a handover from the admin to a roster member. The
// sender is always the admin and the date is stamped by the service clock.
func (s *RecordService) CreateTransfer(ctx context.Context, who identity.Identity, in TransferInput) (core.TransferRecord, error) {
	if !s.roster.IsAdmin(who) {
		return core.TransferRecord{}, ErrForbidden
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.TransferRecord{}, err
	}
	receiver, err := s.receiver(in.Receiver)
	if err != nil {
		return core.TransferRecord{}, err
	}

	rec := core.TransferRecord{
		Sender:        core.DefaultSender,
		Receiver:      receiver,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Remarks:       strings.TrimSpace(in.Remarks),
		Amount:        core.AmountOf(amount),
		Date:          core.StoredNow(s.now()),
	}
	if err := rec.Validate(); err != nil {
		return core.TransferRecord{}, err
	}

	id, err := s.store.Insert(ctx, store.Transfers, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save transfer",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err)
		return core.TransferRecord{}, fmt.Errorf("save transfer: %w", err)
	}
	rec.ID = id
	if s.views != nil {
		s.views.ApplyTransfer(receiver, amount)
	}
	s.logger.InfoContext(ctx, "Transfer recorded",
		log.FieldOperation, log.OpCreate,
		log.FieldDocID, id,
		log.FieldUser, receiver,
		log.FieldAmount, amount.String())
	return rec, nil
}

// receiver resolves a name to the roster spelling. Only members with role
// user receive transfers.
func (s *RecordService) receiver(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.ErrEmptyReceiver
	}
	for _, r := range s.roster.Receivers() {
		if core.SameName(r, name) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReceiver, name)
}

// CreateExpense records an expense for the caller. Name and role come from
// the roster, never from the request.
func (s *RecordService) CreateExpense(ctx context.Context, who identity.Identity, in ExpenseInput) (core.ExpenseRecord, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	typ, err := core.ParseExpenseType(in.Type)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	now := s.now()
	day := strings.TrimSpace(in.Date)
	if day == "" {
		day = now.In(s.loc).Format(core.DayLayout)
	}

	member := s.roster.Attribution(who.Email)
	rec := core.ExpenseRecord{
		Name:      member.Name,
		Email:     core.NormalizeName(who.Email),
		Role:      member.Role,
		Title:     strings.TrimSpace(in.Title),
		Type:      string(typ),
		Remarks:   strings.TrimSpace(in.Remarks),
		Amount:    core.AmountOf(amount),
		Date:      core.TextDate(day),
		CreatedAt: core.StoredNow(now),
	}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	id, err := s.store.Insert(ctx, store.Expenses, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save expense",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err)
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}
	rec.ID = id
	if s.views != nil {
		s.views.Reload()
	}
	s.logger.InfoContext(ctx, "Expense recorded",
		log.FieldOperation, log.OpCreate,
		log.FieldDocID, id,
		log.FieldUser, member.Name,
		log.FieldAmount, amount.String())
	return rec, nil
}

func (s *RecordService) skip(coll store.Collection) store.SkipFunc {
	return func(id string, err error) {
		s.logger.Warn("Skipping unreadable document",
			log.FieldCollection, string(coll),
			log.FieldDocID, id,
			log.FieldError, err)
	}
}

// TransferHistory lists transfers newest first. "admin" has no transfer
// history; a member name selects transfers to or from that member; "all" or
// empty selects every admin-to-member transfer.
func (s *RecordService) TransferHistory(ctx context.Context, user string) ([]core.TransferRecord, error) {
	user = strings.TrimSpace(user)
	if core.SameName(user, "admin") {
		return []core.TransferRecord{}, nil
	}
	docs, err := s.store.ReadAll(ctx, store.Transfers)
	if err != nil {
		return nil, fmt.Errorf("read transfers: %w", err)
	}
	all := store.DecodeTransfers(docs, s.skip(store.Transfers))

	out := make([]core.TransferRecord, 0, len(all))
	for _, t := range all {
		switch {
		case user == "" || user == "all":
			if core.SameName(t.Sender, "admin") && !core.SameName(t.Receiver, "admin") {
				out = append(out, t)
			}
		case core.SameName(t.Receiver, user) || core.SameName(t.Sender, user):
			out = append(out, t)
		}
	}
	sortNewestFirst(out, func(t core.TransferRecord) time.Time {
		when, _ := core.FirstResolved(s.loc, t.Date, t.CreatedAt)
		return when
	})
	return out, nil
}

// ExpenseHistory lists expenses newest first by createdAt, then date.
// "admin" selects the admin's own expenses; a member name selects that
// member's; "all" or empty selects everything.
func (s *RecordService) ExpenseHistory(ctx context.Context, user string) ([]core.ExpenseRecord, error) {
	user = strings.TrimSpace(user)
	docs, err := s.store.ReadAll(ctx, store.Expenses)
	if err != nil {
		return nil, fmt.Errorf("read expenses: %w", err)
	}
	all := store.DecodeExpenses(docs, s.skip(store.Expenses))

	out := make([]core.ExpenseRecord, 0, len(all))
	for _, e := range all {
		switch {
		case core.SameName(user, "admin"):
			if e.Role == core.RoleAdmin {
				out = append(out, e)
			}
		case user == "" || user == "all":
			out = append(out, e)
		case e.Role == core.RoleUser && core.SameName(e.Name, user):
			out = append(out, e)
		}
	}
	sortNewestFirst(out, func(e core.ExpenseRecord) time.Time {
		when, _ := core.FirstResolved(s.loc, e.CreatedAt, e.Date)
		return when
	})
	return out, nil
}

func sortNewestFirst[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// Paginate returns the 1-based page of items. Pages past the end are empty;
// pages below 1 are treated as 1.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	p := Page[T]{Items: []T{}, Page: page, Total: total, TotalPages: (total + size - 1) / size}
	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := start + size
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	return p
}
