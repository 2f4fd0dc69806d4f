package export_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/export"
	"github.com/daesung-dev/anshim/internal/gateway"
)

func TestService_Statement(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := escrow.NewMockRepository(ctrl)
	gw := gateway.NewMockGateway(ctrl)
	escrowSvc := escrow.NewService(repo, gw, escrow.FeeSchedule{RateBps: 500})

	tx := &escrow.Transaction{
		ID:          uuid.New(),
		Number:      "ANS-202608-0003",
		TotalAmount: 1_000_000,
		Status:      escrow.StatusInProgress,
		CreatedAt:   time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
	}

	repo.EXPECT().ListTransactions(gomock.Any(), escrow.ListFilter{}).Return([]*escrow.Transaction{tx}, nil)

	balances := map[escrow.Account]int64{
		escrow.AccountCustody:         400_000,
		escrow.AccountPartnerPayout:   570_000,
		escrow.AccountPlatformRevenue: 30_000,
		escrow.AccountCustomerRefund:  0,
	}

	repo.EXPECT().
		Balance(gomock.Any(), tx.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, account escrow.Account) (int64, error) {
			return balances[account], nil
		}).
		Times(4)

	svc := export.NewService(escrowSvc)

	rows, err := svc.Statement(context.Background(), escrow.ListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, int64(400_000), rows[0].Custody)
	assert.Equal(t, int64(570_000), rows[0].PartnerPayout)
	assert.Equal(t, int64(30_000), rows[0].PlatformRevenue)
	assert.Zero(t, rows[0].CustomerRefund)
}

func TestWriteCSV(t *testing.T) {
	rows := []export.Row{
		{
			Transaction: &escrow.Transaction{
				Number:      "ANS-202608-0003",
				TotalAmount: 1_000_000,
				Status:      escrow.StatusInProgress,
				CreatedAt:   time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
			},
			Custody:         400_000,
			PartnerPayout:   570_000,
			PlatformRevenue: 30_000,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, rows))

	out := buf.String()

	// Excel reads the Korean headers as EUC-KR unless the BOM leads.
	require.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "거래번호,상태,총액,예치잔액,파트너지급,플랫폼수수료,고객환불,생성일시", lines[0])
	assert.Equal(t, "ANS-202608-0003,in_progress,1000000,400000,570000,30000,0,2026-08-10 09:00:00", lines[1])
}
