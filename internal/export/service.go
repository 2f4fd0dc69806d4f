// Package export produces accounting statements from the escrow ledger for
// the finance team's month-end handoff.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/daesung-dev/anshim/internal/escrow"
)

// Row is one statement line: a transaction together with its current
// ledger balances. Balances come from the ledger at read time, never from
// cached columns.
type Row struct {
	Transaction     *escrow.Transaction
	Custody         int64
	PartnerPayout   int64
	PlatformRevenue int64
	CustomerRefund  int64
}

type Service struct {
	escrows *escrow.Service
}

func NewService(escrows *escrow.Service) *Service {
	return &Service{escrows: escrows}
}

// Statement assembles one row per transaction matching the filter, newest
// first, with the four account balances resolved from the ledger.
func (s *Service) Statement(ctx context.Context, filter escrow.ListFilter) ([]Row, error) {
	ts, err := s.escrows.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for statement: %w", err)
	}

	rows := make([]Row, 0, len(ts))

	for _, t := range ts {
		row := Row{Transaction: t}

		for account, dst := range map[escrow.Account]*int64{
			escrow.AccountCustody:         &row.Custody,
			escrow.AccountPartnerPayout:   &row.PartnerPayout,
			escrow.AccountPlatformRevenue: &row.PlatformRevenue,
			escrow.AccountCustomerRefund:  &row.CustomerRefund,
		} {
			balance, err := s.escrows.Balance(ctx, t.ID, account)
			if err != nil {
				return nil, fmt.Errorf("balance of %s for %s: %w", account, t.Number, err)
			}

			*dst = balance
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// Statement column headers, matching the vocabulary of the gateways'
// settlement files.
var csvHeader = []string{"거래번호", "상태", "총액", "예치잔액", "파트너지급", "플랫폼수수료", "고객환불", "생성일시"}

// WriteCSV renders the statement as UTF-8 CSV. A byte order mark leads the
// output; without it Excel misreads the Korean headers as EUC-KR.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("writing bom: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing statement header: %w", err)
	}

	for _, row := range rows {
		t := row.Transaction

		record := []string{
			t.Number,
			string(t.Status),
			strconv.FormatInt(t.TotalAmount, 10),
			strconv.FormatInt(row.Custody, 10),
			strconv.FormatInt(row.PartnerPayout, 10),
			strconv.FormatInt(row.PlatformRevenue, 10),
			strconv.FormatInt(row.CustomerRefund, 10),
			t.CreatedAt.Format("2006-01-02 15:04:05"),
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing statement row %s: %w", t.Number, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
