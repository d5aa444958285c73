package inkv_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/imellon/go-investa/internal/logger"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	storageErrors "github.com/imellon/go-investa/internal/storage/v1/errors"
	"github.com/imellon/go-investa/internal/storage/v1/inkv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *inkv.Storage {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return inkv.InitWithClient(rdb, logger.InitLog())
}

func TestAddNewUser_EmailUniqueness(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	err := st.AddNewUser(ctx, modelstorage.UserDocument{UID: "u1", Email: "a@mail.com"})
	require.NoError(t, err)

	err = st.AddNewUser(ctx, modelstorage.UserDocument{UID: "u2", Email: "a@mail.com"})
	var alreadyExists *storageErrors.AlreadyExistsError
	assert.ErrorAs(t, err, &alreadyExists)
	assert.Equal(t, "a@mail.com", alreadyExists.ID)
}

func TestAddNewUser_ReleasesEmailIndexOnDocWriteFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := inkv.InitWithClient(rdb, logger.InitLog())
	ctx := context.Background()

	// occupy the users collection key with a plain string so the account
	// document write fails after the index entry is reserved
	require.NoError(t, mr.Set("users", "occupied"))
	err := st.AddNewUser(ctx, modelstorage.UserDocument{UID: "u1", Email: "a@mail.com"})
	require.Error(t, err)

	// the failed write must not leave the email claimed
	mr.Del("users")
	require.NoError(t, st.AddNewUser(ctx, modelstorage.UserDocument{UID: "u2", Email: "a@mail.com"}))

	user, err := st.GetUserByEmail(ctx, "a@mail.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.UID)
}

func TestGetUserByEmail(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.AddNewUser(ctx, modelstorage.UserDocument{UID: "u1", Email: "a@mail.com", DisplayName: "Alice"}))

	user, err := st.GetUserByEmail(ctx, "a@mail.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UID)
	assert.Equal(t, "Alice", user.DisplayName)

	_, err = st.GetUserByEmail(ctx, "missing@mail.com")
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestListDeposits_NewestFirst(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.AddDeposit(ctx, "u1", modelstorage.DepositDocument{TransactionID: "old", CreatedAt: 100, Status: "Pending"}))
	require.NoError(t, st.AddDeposit(ctx, "u1", modelstorage.DepositDocument{TransactionID: "new", CreatedAt: 200, Status: "Pending"}))

	deposits, err := st.ListDeposits(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	assert.Equal(t, "new", deposits[0].TransactionID)
	assert.Equal(t, "old", deposits[1].TransactionID)
}

func TestSetDepositStatus_PartialUpdate(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	deposit := modelstorage.DepositDocument{
		TransactionID: "tx1",
		Amount:        "150.00",
		Date:          "6-7-2025",
		Method:        "BTC",
		ProofURL:      "/blobs/u1/proof.png",
		Status:        "Pending",
		Type:          "deposit",
	}
	require.NoError(t, st.AddDeposit(ctx, "u1", deposit))
	require.NoError(t, st.SetDepositStatus(ctx, "u1", "tx1", "approved"))

	updated, err := st.GetDeposit(ctx, "u1", "tx1")
	require.NoError(t, err)
	assert.Equal(t, "approved", updated.Status)
	// all sibling fields survive the status write
	assert.Equal(t, "150.00", updated.Amount)
	assert.Equal(t, "6-7-2025", updated.Date)
	assert.Equal(t, "/blobs/u1/proof.png", updated.ProofURL)
}

func TestSetDepositStatus_Missing(t *testing.T) {
	st := newTestStorage(t)
	err := st.SetDepositStatus(context.Background(), "u1", "nope", "approved")
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPatchDoc_PreservesUnknownFields(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := inkv.InitWithClient(rdb, logger.InitLog())
	ctx := context.Background()

	// simulate a historical record carrying a field the current schema does not know
	raw := `{"transactionId":"tx1","amount":"10","status":"Pending","importedFrom":"rtdb"}`
	require.NoError(t, rdb.HSet(ctx, "depositTransactions/u1", "tx1", raw).Err())

	require.NoError(t, st.SetDepositStatus(ctx, "u1", "tx1", "rejected"))

	stored, err := rdb.HGet(ctx, "depositTransactions/u1", "tx1").Result()
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stored), &doc))
	assert.Equal(t, "rejected", doc["status"])
	assert.Equal(t, "rtdb", doc["importedFrom"])
}

func TestListWithdrawals_NewestFirst(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.AddWithdrawal(ctx, "u1", modelstorage.WithdrawalDocument{Key: 100, CreatedAt: 100, Status: "pending"}))
	require.NoError(t, st.AddWithdrawal(ctx, "u1", modelstorage.WithdrawalDocument{Key: 200, CreatedAt: 200, Status: "pending"}))

	withdrawals, err := st.ListWithdrawals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, withdrawals, 2)
	assert.Equal(t, int64(200), withdrawals[0].Key)
}

func TestPlans_OrderedByIndexAndDelete(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.AddPlan(ctx, "u1", modelstorage.PlanDocument{Key: "p2", Index: 2}))
	require.NoError(t, st.AddPlan(ctx, "u1", modelstorage.PlanDocument{Key: "p1", Index: 1}))

	plans, err := st.ListPlans(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "p1", plans[0].Key)

	require.NoError(t, st.DeletePlan(ctx, "u1", "p1"))
	plans, err = st.ListPlans(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	err = st.DeletePlan(ctx, "u1", "p1")
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestTemplates_OrderedByOrder(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "b", Name: "Gold", Order: 2}))
	require.NoError(t, st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "a", Name: "Silver", Order: 1}))

	templates, err := st.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Silver", templates[0].Name)
}

func TestMarkNotificationRead(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.AddNotification(ctx, "u1", modelstorage.NotificationDocument{ID: "n1", Title: "Deposit approved", Read: false}))
	require.NoError(t, st.MarkNotificationRead(ctx, "u1", "n1"))

	entries, err := st.ListNotificationsRaw(ctx, "u1")
	require.NoError(t, err)
	var doc modelstorage.NotificationDocument
	require.NoError(t, json.Unmarshal([]byte(entries["n1"]), &doc))
	assert.True(t, doc.Read)
	assert.Equal(t, "Deposit approved", doc.Title)
}

func TestWithdrawalFeePercent(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	// absent setting reads as empty, not an error
	raw, err := st.GetWithdrawalFeePercent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", raw)

	require.NoError(t, st.SetWithdrawalFeePercent(ctx, "2.5"))
	raw, err = st.GetWithdrawalFeePercent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.5", raw)

	err = st.SetWithdrawalFeePercent(ctx, "not-a-number")
	var marshaling *storageErrors.MarshalingKVError
	assert.ErrorAs(t, err, &marshaling)
}

func TestWallets_SortedByName(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, st.SaveWallet(ctx, modelstorage.WalletDocument{ID: "w2", Name: "ETH Main", Address: "0xdef"}))
	require.NoError(t, st.SaveWallet(ctx, modelstorage.WalletDocument{ID: "w1", Name: "BTC Main", Address: "bc1abc"}))

	wallets, err := st.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "BTC Main", wallets[0].Name)

	require.NoError(t, st.DeleteWallet(ctx, "w1"))
	wallets, err = st.ListWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}
