package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountCode string
	Debit       int64
	Credit      int64
}

// PostingInput groups the fields required to create a journal entry.
type PostingInput struct {
	Date          time.Time
	Reference     string
	TransactionID string
	Lines         []PostingLineInput
}

// Validate ensures the posting meets the double-entry preconditions.
func (in PostingInput) Validate() error {
	if in.TransactionID == "" {
		return errors.New("ledger: transaction id required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: posting date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit int64
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit {
		return ErrImbalancedEntry
	}
	return nil
}

// ReverseLines mirrors a set of posted lines, swapping debit and credit.
func ReverseLines(lines []JournalEntryLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Credit,
			Credit:      line.Debit,
		})
	}
	return out
}

// AccountDeltas sums (debit - credit) per account over posting lines.
func AccountDeltas(lines []PostingLineInput) map[string]int64 {
	deltas := make(map[string]int64, len(lines))
	for _, line := range lines {
		deltas[line.AccountCode] += line.Debit - line.Credit
	}
	return deltas
}

// GroupByAccount collapses lines hitting the same account into a single
// net line per account, debit or credit side depending on the sign.
// Output order is deterministic (account code ascending).
func GroupByAccount(lines []PostingLineInput) []PostingLineInput {
	deltas := AccountDeltas(lines)
	codes := make([]string, 0, len(deltas))
	for code := range deltas {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]PostingLineInput, 0, len(codes))
	for _, code := range codes {
		delta := deltas[code]
		switch {
		case delta > 0:
			out = append(out, PostingLineInput{AccountCode: code, Debit: delta})
		case delta < 0:
			out = append(out, PostingLineInput{AccountCode: code, Credit: -delta})
		}
	}
	return out
}
