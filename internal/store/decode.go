package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"cashbook/internal/core"
)

var ErrNotObject = errors.New("document is not a JSON object")

// fields is a parsed document field map. Lookups never fail: wrong types
// degrade to empty values so one odd field cannot drop a record.
type fields map[string]json.RawMessage

func parseFields(data json.RawMessage) (fields, error) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil || f == nil {
		return nil, ErrNotObject
	}
	return f, nil
}

func (f fields) text(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func (f fields) amount(key string) core.Amount {
	var a core.Amount
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &a)
	}
	return a
}

func (f fields) date(key string) core.DateValue {
	var v core.DateValue
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// DecodeTransfer reads a transfer document. It fails only when the document
// is not an object.
func DecodeTransfer(doc Document) (core.TransferRecord, error) {
	f, err := parseFields(doc.Data)
	if err != nil {
		return core.TransferRecord{}, err
	}
	return core.TransferRecord{
		ID:            doc.ID,
		Sender:        f.text("sender"),
		Receiver:      f.text("receiver"),
		PaymentMethod: f.text("paymentMethod"),
		Remarks:       f.text("remarks"),
		Amount:        f.amount("amount"),
		Date:          f.date("date"),
		CreatedAt:     f.date("createdAt"),
		Timestamp:     f.date("timestamp"),
	}, nil
}

// DecodeExpense reads an expense document.
func DecodeExpense(doc Document) (core.ExpenseRecord, error) {
	f, err := parseFields(doc.Data)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return core.ExpenseRecord{
		ID:        doc.ID,
		Name:      f.text("name"),
		Email:     f.text("email"),
		Role:      core.Role(f.text("role")),
		Title:     f.text("title"),
		Type:      f.text("type"),
		Remarks:   f.text("remarks"),
		Amount:    f.amount("amount"),
		Date:      f.date("date"),
		CreatedAt: f.date("createdAt"),
	}, nil
}

// SkipFunc is told about documents that could not be decoded.
type SkipFunc func(id string, err error)

// DecodeTransfers decodes docs, skipping the ones that are not objects.
func DecodeTransfers(docs []Document, skip SkipFunc) []core.TransferRecord {
	out := make([]core.TransferRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := DecodeTransfer(d)
		if err != nil {
			if skip != nil {
				skip(d.ID, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}

// DecodeExpenses decodes docs, skipping the ones that are not objects.
func DecodeExpenses(docs []Document, skip SkipFunc) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := DecodeExpense(d)
		if err != nil {
			if skip != nil {
				skip(d.ID, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}

// DateField returns the named date field of a document, absent when the
// document is not an object.
func DateField(doc Document, key string) core.DateValue {
	f, err := parseFields(doc.Data)
	if err != nil {
		return core.DateValue{}
	}
	return f.date(key)
}
