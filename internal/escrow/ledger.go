package escrow

import (
	"time"

	"github.com/google/uuid"
)

// Account identifies a bucket of money in the ledger. The ledger is the
// single source of truth for balances; no component caches one.
type Account string

const (
	AccountCustody         Account = "custody"
	AccountPartnerPayout   Account = "partner_payout"
	AccountPlatformRevenue Account = "platform_revenue"
	AccountCustomerRefund  Account = "customer_refund"
)

// LedgerEntry records one signed movement on an account. Positive amounts
// credit the account, negative amounts debit it. Key carries the
// idempotency key of the gateway operation that caused the movement, when
// there is one.
type LedgerEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	MilestoneID   *uuid.UUID
	Account       Account
	Amount        int64
	Key           string
	CreatedAt     time.Time
}

// captureEntries moves the full amount into platform custody.
func captureEntries(t *Transaction, key string) []LedgerEntry {
	return []LedgerEntry{
		{TransactionID: t.ID, Account: AccountCustody, Amount: t.TotalAmount, Key: key},
	}
}

// releaseEntries settles one milestone out of custody: the partner share to
// the payout account, the fee share to platform revenue.
func releaseEntries(t *Transaction, m *Milestone, p MilestonePayout) []LedgerEntry {
	id := m.ID

	return []LedgerEntry{
		{TransactionID: t.ID, MilestoneID: &id, Account: AccountCustody, Amount: -m.Amount},
		{TransactionID: t.ID, MilestoneID: &id, Account: AccountPartnerPayout, Amount: p.Payout},
		{TransactionID: t.ID, MilestoneID: &id, Account: AccountPlatformRevenue, Amount: p.Fee},
	}
}

// refundEntries returns the un-released custody remainder to the payer.
func refundEntries(t *Transaction, remainder int64, key string) []LedgerEntry {
	return []LedgerEntry{
		{TransactionID: t.ID, Account: AccountCustody, Amount: -remainder, Key: key},
		{TransactionID: t.ID, Account: AccountCustomerRefund, Amount: remainder, Key: key},
	}
}
