package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daesung-dev/anshim/internal/escrow"
)

// Settlement file column headers as Korean gateways ship them.
const (
	colReference = "거래번호"
	colAmount    = "금액"
	colStatus    = "상태"
	colPaidAt    = "결제일시"
)

// Statuses a settlement row may carry. Only approved rows are replayed.
const (
	rowApproved  = "승인"
	rowCancelled = "취소"
)

// Record is one settlement row: the idempotency key the capture was issued
// under, the amount that actually moved, and the gateway's verdict.
type Record struct {
	Key      string
	Amount   int64 // KRW
	Approved bool
	PaidAt   time.Time
}

// Parse reads a UTF-8 settlement CSV. Gateways prepend summary blocks of
// varying shapes, so the header row is located by its column names and
// everything above it is ignored. Rows that do not parse are skipped rather
// than failing the whole file.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &escrow.ValidationError{Reason: "failed to read settlement csv: " + err.Error()}
	}

	var records []Record

	headerFound := false

	idxRef := -1
	idxAmount := -1
	idxStatus := -1
	idxPaidAt := -1

	for _, row := range rows {
		if !headerFound {
			matches := 0

			for i, col := range row {
				switch strings.TrimSpace(col) {
				case colReference:
					idxRef = i
					matches++
				case colAmount:
					idxAmount = i
					matches++
				case colStatus:
					idxStatus = i
					matches++
				case colPaidAt:
					idxPaidAt = i
				}
			}

			// Reference and amount are enough to call it the header.
			if matches >= 2 && idxRef != -1 && idxAmount != -1 {
				headerFound = true
			}

			continue
		}

		maxIdx := max(idxRef, max(idxAmount, max(idxStatus, idxPaidAt)))
		if len(row) <= maxIdx {
			continue
		}

		key := strings.TrimSpace(row[idxRef])
		if key == "" {
			continue
		}

		amount, err := parseAmount(strings.TrimSpace(row[idxAmount]))
		if err != nil {
			// Probably a footer or subtotal row.
			continue
		}

		rec := Record{Key: key, Amount: amount}

		if idxStatus != -1 {
			rec.Approved = strings.TrimSpace(row[idxStatus]) == rowApproved
		}

		if idxPaidAt != -1 {
			if ts, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(row[idxPaidAt])); err == nil {
				rec.PaidAt = ts
			}
		}

		records = append(records, rec)
	}

	if !headerFound {
		return nil, &escrow.ValidationError{Reason: "no settlement header row found"}
	}

	return records, nil
}

// parseAmount parses a grouped whole-won amount, e.g. "1,000,000" -> 1000000.
// Settlement files carry no decimal part; anything fractional is rejected.
func parseAmount(s string) (int64, error) {
	clean := strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, err
	}

	if !d.IsInteger() {
		return 0, fmt.Errorf("fractional won amount %q", s)
	}

	return d.IntPart(), nil
}
