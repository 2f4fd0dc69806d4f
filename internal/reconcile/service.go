package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/encoding"
	"github.com/daesung-dev/anshim/internal/escrow"
)

// Result summarizes one settlement file run.
type Result struct {
	Rows     int      // parsed settlement rows
	Replayed int      // funded transitions applied
	Skipped  int      // already funded, cancelled rows, non-capture keys
	Unknown  []string // keys with no matching transaction
}

// Service replays gateway-confirmed captures that the engine lost, e.g. a
// capture that succeeded after the request timed out and the funded
// transition was rolled back. Running the same file twice changes nothing.
type Service struct {
	escrows *escrow.Service
}

func NewService(escrows *escrow.Service) *Service {
	return &Service{escrows: escrows}
}

// Import reads a settlement file in whatever encoding the gateway shipped
// it in and replays every approved capture row.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Result, error) {
	utf8r, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, err
	}

	records, err := Parse(utf8r)
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: len(records)}

	for _, rec := range records {
		if !rec.Approved {
			res.Skipped++
			continue
		}

		txID, ok := captureTransactionID(rec.Key)
		if !ok {
			res.Skipped++
			continue
		}

		t, replayed, err := s.escrows.ReplayFunding(ctx, txID)
		if err != nil {
			if errors.Is(err, escrow.ErrNotFound) {
				res.Unknown = append(res.Unknown, rec.Key)
				continue
			}

			return nil, err
		}

		if !replayed {
			res.Skipped++
			continue
		}

		if rec.Amount != t.TotalAmount {
			slog.Warn("settlement amount differs from escrow total",
				"key", rec.Key, "settled", rec.Amount, "total", t.TotalAmount)
		}

		res.Replayed++
	}

	slog.Info("settlement file reconciled",
		"rows", res.Rows, "replayed", res.Replayed, "skipped", res.Skipped, "unknown", len(res.Unknown))

	return res, nil
}

// captureTransactionID extracts the transaction id from a capture
// idempotency key of the form "<uuid>:capture".
func captureTransactionID(key string) (uuid.UUID, bool) {
	raw, ok := strings.CutSuffix(key, ":capture")
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}
