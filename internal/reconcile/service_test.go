package reconcile_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/encoding/korean"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/gateway"
	"github.com/daesung-dev/anshim/internal/reconcile"
)

func settlementTx(status escrow.Status) *escrow.Transaction {
	txID := uuid.New()

	return &escrow.Transaction{
		ID:          txID,
		Number:      "ANS-202608-0007",
		CustomerID:  uuid.New(),
		PartnerID:   uuid.New(),
		TotalAmount: 500_000,
		Status:      status,
		Milestones: []*escrow.Milestone{
			{ID: uuid.New(), TransactionID: txID, Position: 0, Name: "Delivery", Amount: 500_000, Percentage: 100, Status: escrow.MilestonePending},
		},
	}
}

func TestService_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := escrow.NewMockRepository(ctrl)
	gw := gateway.NewMockGateway(ctrl)
	escrowSvc := escrow.NewService(repo, gw, escrow.FeeSchedule{RateBps: 500})

	lost := settlementTx(escrow.StatusInitiated)
	funded := settlementTx(escrow.StatusFunded)
	unknownID := uuid.New()

	// The lost capture replays: funding state, ledger and the system
	// message land without a new gateway call.
	lostTx := escrow.NewMockTx(ctrl)
	lostTx.EXPECT().Transaction().Return(lost).AnyTimes()
	lostTx.EXPECT().Rollback().Return(nil).AnyTimes()
	lostTx.EXPECT().SetFunding(gomock.Any(), int64(25_000), int64(475_000)).Return(nil)
	lostTx.EXPECT().SetStatus(gomock.Any(), escrow.StatusFunded).Return(nil)
	lostTx.EXPECT().SetMilestone(gomock.Any(), gomock.Any()).Return(nil)
	lostTx.EXPECT().AddLedgerEntries(gomock.Any(), gomock.Any()).Return(nil)
	lostTx.EXPECT().AppendSystemMessage(gomock.Any(), gomock.Any()).Return(nil)
	lostTx.EXPECT().Commit().Return(nil)
	repo.EXPECT().Begin(gomock.Any(), lost.ID).Return(lostTx, nil)

	// The already-funded transaction is a no-op replay.
	fundedTx := escrow.NewMockTx(ctrl)
	fundedTx.EXPECT().Transaction().Return(funded).AnyTimes()
	fundedTx.EXPECT().Rollback().Return(nil).AnyTimes()
	repo.EXPECT().Begin(gomock.Any(), funded.ID).Return(fundedTx, nil)

	repo.EXPECT().Begin(gomock.Any(), unknownID).Return(nil, escrow.ErrNotFound)

	input := strings.Join([]string{
		"거래번호,금액,상태,결제일시",
		fmt.Sprintf("%s:capture,\"500,000\",승인,2026-08-02 14:31:05", lost.ID),
		fmt.Sprintf("%s:capture,\"500,000\",승인,2026-08-02 15:02:19", funded.ID),
		fmt.Sprintf("%s:capture,\"120,000\",취소,2026-08-03 10:00:00", uuid.New()),
		fmt.Sprintf("%s:capture,\"75,000\",승인,2026-08-04 11:45:32", unknownID),
		"MANUAL-ADJUSTMENT-0012,10000,승인,2026-08-05 09:00:00",
	}, "\n")

	svc := reconcile.NewService(escrowSvc)

	res, err := svc.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 1, res.Replayed)

	// Funded no-op, cancelled row and the manual adjustment key.
	assert.Equal(t, 3, res.Skipped)

	require.Len(t, res.Unknown, 1)
	assert.Equal(t, unknownID.String()+":capture", res.Unknown[0])

	assert.Equal(t, escrow.StatusFunded, lost.Status)
}

// Gateways ship settlement files in EUC-KR more often than not; the Korean
// headers and the 승인 status marker must survive transcoding or the file
// silently reconciles nothing.
func TestService_Import_EUCKRFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := escrow.NewMockRepository(ctrl)
	gw := gateway.NewMockGateway(ctrl)
	escrowSvc := escrow.NewService(repo, gw, escrow.FeeSchedule{RateBps: 500})

	lost := settlementTx(escrow.StatusInitiated)

	tx := escrow.NewMockTx(ctrl)
	tx.EXPECT().Transaction().Return(lost).AnyTimes()
	tx.EXPECT().Rollback().Return(nil).AnyTimes()
	tx.EXPECT().SetFunding(gomock.Any(), int64(25_000), int64(475_000)).Return(nil)
	tx.EXPECT().SetStatus(gomock.Any(), escrow.StatusFunded).Return(nil)
	tx.EXPECT().SetMilestone(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().AddLedgerEntries(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().AppendSystemMessage(gomock.Any(), gomock.Any()).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	repo.EXPECT().Begin(gomock.Any(), lost.ID).Return(tx, nil)

	input := "거래번호,금액,상태,결제일시\n" +
		lost.ID.String() + ":capture,\"500,000\",승인,2026-08-02 14:31:05\n"

	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte(input))
	require.NoError(t, err)

	svc := reconcile.NewService(escrowSvc)

	res, err := svc.Import(context.Background(), bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Replayed)
	assert.Empty(t, res.Unknown)
	assert.Equal(t, escrow.StatusFunded, lost.Status)
}

func TestService_Import_SecondRunChangesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := escrow.NewMockRepository(ctrl)
	gw := gateway.NewMockGateway(ctrl)
	escrowSvc := escrow.NewService(repo, gw, escrow.FeeSchedule{RateBps: 500})

	funded := settlementTx(escrow.StatusFunded)

	tx := escrow.NewMockTx(ctrl)
	tx.EXPECT().Transaction().Return(funded).AnyTimes()
	tx.EXPECT().Rollback().Return(nil).AnyTimes()
	repo.EXPECT().Begin(gomock.Any(), funded.ID).Return(tx, nil)

	input := "거래번호,금액,상태\n" + funded.ID.String() + ":capture,\"500,000\",승인\n"

	svc := reconcile.NewService(escrowSvc)

	res, err := svc.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Zero(t, res.Replayed)
	assert.Equal(t, 1, res.Skipped)
}
