package paths_test

import (
	"testing"
	"time"

	"github.com/imellon/go-investa/internal/storage/v1/paths"
	"github.com/stretchr/testify/assert"
)

func TestLocations(t *testing.T) {
	assert.Equal(t, "users", paths.Users())
	assert.Equal(t, "users/u1", paths.User("u1"))
	assert.Equal(t, "depositTransactions/u1", paths.Deposits("u1"))
	assert.Equal(t, "depositTransactions/u1/tx1", paths.Deposit("u1", "tx1"))
	assert.Equal(t, "withdrawals/u1/1700000000000", paths.Withdrawal("u1", 1700000000000))
	assert.Equal(t, "plans/u1/p1", paths.Plan("u1", "p1"))
	assert.Equal(t, "wallets/w1", paths.Wallet("w1"))
	assert.Equal(t, "profits/u1/pr1", paths.Profit("u1", "pr1"))
	assert.Equal(t, "notifications/u1/n1", paths.Notification("u1", "n1"))
	assert.Equal(t, "planTemplates/t1", paths.Template("t1"))
	assert.Equal(t, "settings/withdrawalFeePercent", paths.WithdrawalFeeSetting())
}

func TestSplit(t *testing.T) {
	collection, key := paths.Split("depositTransactions/u1/tx1")
	assert.Equal(t, "depositTransactions/u1", collection)
	assert.Equal(t, "tx1", key)

	collection, key = paths.Split("users")
	assert.Equal(t, "", collection)
	assert.Equal(t, "users", key)
}

func TestLegacyDate(t *testing.T) {
	assert.Equal(t, "6-7-2025", paths.LegacyDate(time.Date(2025, 7, 6, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "25-12-2024", paths.LegacyDate(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
	// no zero padding for single digit day or month
	assert.Equal(t, "1-1-2026", paths.LegacyDate(time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)))
}
