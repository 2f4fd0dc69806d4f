package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for the escrow engine. Statuses are plain text validated by the
// state machine, not by the database; the partial unique index is what makes
// "one open dispute per transaction" hold under concurrency.
const schema = `
CREATE SEQUENCE IF NOT EXISTS escrow_number_seq;

CREATE TABLE IF NOT EXISTS escrow_transactions (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	number         TEXT NOT NULL UNIQUE,
	customer_id    UUID NOT NULL,
	partner_id     UUID NOT NULL,
	total_amount   BIGINT NOT NULL CHECK (total_amount > 0),
	platform_fee   BIGINT NOT NULL DEFAULT 0,
	partner_payout BIGINT NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	version        BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ,
	funded_at      TIMESTAMPTZ,
	closed_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_escrow_transactions_customer ON escrow_transactions (customer_id);
CREATE INDEX IF NOT EXISTS idx_escrow_transactions_partner ON escrow_transactions (partner_id);

CREATE TABLE IF NOT EXISTS escrow_milestones (
	id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	transaction_id    UUID NOT NULL REFERENCES escrow_transactions (id),
	position          INT NOT NULL,
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	amount            BIGINT NOT NULL CHECK (amount > 0),
	percentage        INT NOT NULL,
	due_date          TIMESTAMPTZ,
	status            TEXT NOT NULL,
	proof_description TEXT,
	reject_reason     TEXT,
	released_at       TIMESTAMPTZ,
	UNIQUE (transaction_id, position)
);

CREATE TABLE IF NOT EXISTS messages (
	id                    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	transaction_id        UUID NOT NULL REFERENCES escrow_transactions (id),
	sender_id             UUID,
	type                  TEXT NOT NULL,
	content               TEXT NOT NULL,
	contains_contact_info BOOLEAN NOT NULL DEFAULT FALSE,
	is_read               BOOLEAN NOT NULL DEFAULT FALSE,
	seq                   BIGSERIAL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_transaction_seq ON messages (transaction_id, seq);

CREATE TABLE IF NOT EXISTS disputes (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	transaction_id UUID NOT NULL REFERENCES escrow_transactions (id),
	raised_by      UUID NOT NULL,
	reason         TEXT NOT NULL,
	description    TEXT NOT NULL,
	outcome        TEXT,
	resolved_by    UUID,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_disputes_one_open
	ON disputes (transaction_id) WHERE resolved_at IS NULL;

CREATE TABLE IF NOT EXISTS ledger_entries (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	transaction_id UUID NOT NULL REFERENCES escrow_transactions (id),
	milestone_id   UUID REFERENCES escrow_milestones (id),
	account        TEXT NOT NULL,
	amount         BIGINT NOT NULL,
	key            TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries (transaction_id, account);
`

// Migrate applies the schema. Every statement is idempotent, so it runs on
// each startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}
