package chat_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/daesung-dev/anshim/internal/chat"
	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/gateway"
)

type chatFixture struct {
	repo    *chat.MockRepository
	escrows *escrow.MockRepository
	svc     *chat.Service
	tx      *escrow.Transaction
}

func newChatFixture(ctrl *gomock.Controller) *chatFixture {
	repo := chat.NewMockRepository(ctrl)
	escrows := escrow.NewMockRepository(ctrl)
	gw := gateway.NewMockGateway(ctrl)

	escrowSvc := escrow.NewService(escrows, gw, escrow.FeeSchedule{RateBps: 500})

	return &chatFixture{
		repo:    repo,
		escrows: escrows,
		svc:     chat.NewService(repo, escrowSvc),
		tx: &escrow.Transaction{
			ID:         uuid.New(),
			CustomerID: uuid.New(),
			PartnerID:  uuid.New(),
			Status:     escrow.StatusInProgress,
		},
	}
}

func TestService_Send(t *testing.T) {
	t.Run("BlankContent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newChatFixture(ctrl)

		_, _, err := f.svc.Send(context.Background(), f.tx.ID, f.tx.CustomerID, "   \n ")

		var validationErr *escrow.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("NonParty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newChatFixture(ctrl)
		f.escrows.EXPECT().GetTransaction(gomock.Any(), f.tx.ID).Return(f.tx, nil)

		_, _, err := f.svc.Send(context.Background(), f.tx.ID, uuid.New(), "hello")

		var unauthorizedErr *escrow.UnauthorizedActionError
		assert.ErrorAs(t, err, &unauthorizedErr)
	})

	t.Run("CleanMessageStoredAsIs", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newChatFixture(ctrl)
		f.escrows.EXPECT().GetTransaction(gomock.Any(), f.tx.ID).Return(f.tx, nil)

		f.repo.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *chat.Message) error {
				assert.Equal(t, "시안 잘 받았습니다, 감사합니다.", m.Content)
				assert.False(t, m.ContainsContactInfo)
				assert.Equal(t, chat.TypeUser, m.Type)
				require.NotNil(t, m.SenderID)
				assert.Equal(t, f.tx.CustomerID, *m.SenderID)
				return nil
			})

		msg, detected, err := f.svc.Send(context.Background(), f.tx.ID, f.tx.CustomerID, "시안 잘 받았습니다, 감사합니다.")
		require.NoError(t, err)

		assert.False(t, detected)
		assert.Equal(t, "시안 잘 받았습니다, 감사합니다.", msg.Content)
	})

	t.Run("ContactInfoMaskedBeforeStorage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newChatFixture(ctrl)
		f.escrows.EXPECT().GetTransaction(gomock.Any(), f.tx.ID).Return(f.tx, nil)

		f.repo.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *chat.Message) error {
				// The original number must never reach the repository.
				assert.Equal(t, "call me at ******", m.Content)
				assert.True(t, m.ContainsContactInfo)
				return nil
			})

		msg, detected, err := f.svc.Send(context.Background(), f.tx.ID, f.tx.PartnerID, "call me at 010-1234-5678")
		require.NoError(t, err)

		assert.True(t, detected)
		assert.Equal(t, "call me at ******", msg.Content)
	})
}

func TestService_ListFor(t *testing.T) {
	t.Run("PartySeesConversationAndUnread", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newChatFixture(ctrl)

		msgs := []*chat.Message{
			{ID: uuid.New(), TransactionID: f.tx.ID, Type: chat.TypeSystem, Content: "Escrow funded.", Seq: 1},
			{ID: uuid.New(), TransactionID: f.tx.ID, Type: chat.TypeUser, SenderID: &f.tx.PartnerID, Content: "작업 시작했습니다.", Seq: 2},
		}

		f.escrows.EXPECT().GetTransaction(gomock.Any(), f.tx.ID).Return(f.tx, nil)
		f.repo.EXPECT().ListMessages(gomock.Any(), f.tx.ID).Return(msgs, nil)
		f.repo.EXPECT().UnreadCount(gomock.Any(), f.tx.ID, f.tx.CustomerID).Return(1, nil)

		got, unread, err := f.svc.ListFor(context.Background(), f.tx.ID, f.tx.CustomerID)
		require.NoError(t, err)

		assert.Equal(t, msgs, got)
		assert.Equal(t, 1, unread)
	})

	t.Run("NonParty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newChatFixture(ctrl)
		f.escrows.EXPECT().GetTransaction(gomock.Any(), f.tx.ID).Return(f.tx, nil)

		_, _, err := f.svc.ListFor(context.Background(), f.tx.ID, uuid.New())

		var unauthorizedErr *escrow.UnauthorizedActionError
		assert.ErrorAs(t, err, &unauthorizedErr)
	})
}

func TestService_MarkRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newChatFixture(ctrl)
	f.escrows.EXPECT().GetTransaction(gomock.Any(), f.tx.ID).Return(f.tx, nil)
	f.repo.EXPECT().MarkRead(gomock.Any(), f.tx.ID, f.tx.PartnerID).Return(nil)

	require.NoError(t, f.svc.MarkRead(context.Background(), f.tx.ID, f.tx.PartnerID))
}
