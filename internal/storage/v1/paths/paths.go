// Package paths maps logical entities to their locations in the document store.
//
// Every location is a slash-separated string whose last segment is the member
// key inside its parent collection. Stored "date" display fields use the
// legacy D-M-YYYY format with no zero padding; historical records were written
// that way and new writes must match.
package paths

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func Users() string {
	return "users"
}

func User(uid string) string {
	return Users() + "/" + uid
}

func Deposits(uid string) string {
	return "depositTransactions/" + uid
}

func Deposit(uid, txID string) string {
	return Deposits(uid) + "/" + txID
}

func Withdrawals(uid string) string {
	return "withdrawals/" + uid
}

func Withdrawal(uid string, key int64) string {
	return Withdrawals(uid) + "/" + strconv.FormatInt(key, 10)
}

func Plans(uid string) string {
	return "plans/" + uid
}

func Plan(uid, key string) string {
	return Plans(uid) + "/" + key
}

func Wallets() string {
	return "wallets"
}

func Wallet(id string) string {
	return Wallets() + "/" + id
}

func Profits(uid string) string {
	return "profits/" + uid
}

func Profit(uid, id string) string {
	return Profits(uid) + "/" + id
}

func Notifications(uid string) string {
	return "notifications/" + uid
}

func Notification(uid, id string) string {
	return Notifications(uid) + "/" + id
}

func Templates() string {
	return "planTemplates"
}

func Template(id string) string {
	return Templates() + "/" + id
}

func WithdrawalFeeSetting() string {
	return "settings/withdrawalFeePercent"
}

// Split separates a member location into its parent collection and member key.
func Split(path string) (collection, key string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// LegacyDate renders a timestamp as D-M-YYYY without zero padding, e.g. 6-7-2025.
func LegacyDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Day(), int(t.Month()), t.Year())
}
