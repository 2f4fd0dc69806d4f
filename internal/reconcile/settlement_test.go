package reconcile_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/reconcile"
)

func TestParse(t *testing.T) {
	// Real settlement files open with a summary block before the header row.
	input := strings.Join([]string{
		"정산내역서,,,",
		"정산기간,2026-08-01 ~ 2026-08-31,,",
		",,,",
		"거래번호,금액,상태,결제일시",
		"9f3c2a1e-0b5d-4a8e-9c7f-1d2e3f4a5b6c:capture,\"1,000,000\",승인,2026-08-02 14:31:05",
		"11111111-2222-3333-4444-555555555555:capture,\"250,000\",취소,2026-08-03 09:12:44",
		"22222222-3333-4444-5555-666666666666:capture,80000,승인,2026-08-05 18:00:01",
		"합계,1330000원,,",
	}, "\n")

	records, err := reconcile.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "9f3c2a1e-0b5d-4a8e-9c7f-1d2e3f4a5b6c:capture", records[0].Key)
	assert.Equal(t, int64(1_000_000), records[0].Amount)
	assert.True(t, records[0].Approved)
	assert.Equal(t, time.Date(2026, 8, 2, 14, 31, 5, 0, time.UTC), records[0].PaidAt)

	// Cancelled rows parse but are not approved.
	assert.False(t, records[1].Approved)

	assert.Equal(t, int64(80_000), records[2].Amount)
	assert.True(t, records[2].Approved)
}

func TestParse_FooterRowsSkipped(t *testing.T) {
	input := strings.Join([]string{
		"거래번호,금액,상태",
		"9f3c2a1e-0b5d-4a8e-9c7f-1d2e3f4a5b6c:capture,50000,승인",
		",,",
		"합계,총 1건,",
	}, "\n")

	records, err := reconcile.Parse(strings.NewReader(input))
	require.NoError(t, err)

	// The blank row has no key and the footer has no numeric amount.
	require.Len(t, records, 1)
	assert.Equal(t, "9f3c2a1e-0b5d-4a8e-9c7f-1d2e3f4a5b6c:capture", records[0].Key)
}

func TestParse_NoHeader(t *testing.T) {
	input := "정산내역서,,,\n이상한 파일,,,\n"

	_, err := reconcile.Parse(strings.NewReader(input))

	var validationErr *escrow.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestParse_FractionalAmountRowSkipped(t *testing.T) {
	input := strings.Join([]string{
		"거래번호,금액,상태",
		"9f3c2a1e-0b5d-4a8e-9c7f-1d2e3f4a5b6c:capture,100.50,승인",
		"22222222-3333-4444-5555-666666666666:capture,100,승인",
	}, "\n")

	records, err := reconcile.Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, int64(100), records[0].Amount)
}
