package processor_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/logger"
	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/models/modelqueue"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	"github.com/imellon/go-investa/internal/service/balance"
	"github.com/imellon/go-investa/internal/service/notifier/v1/notifier"
	serviceErrors "github.com/imellon/go-investa/internal/service/processor/v1/errors"
	"github.com/imellon/go-investa/internal/service/processor/v1/processor"
	"github.com/imellon/go-investa/internal/service/secretary/v1/secretary"
	"github.com/imellon/go-investa/internal/storage/v1/inkv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	proc *processor.Processor
	st   *inkv.Storage
	ntf  *notifier.Service
	sec  *secretary.Secretary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	log := logger.InitLog()
	st := inkv.InitWithClient(rdb, log)
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "kd__82hf_3pq"}, false)
	require.NoError(t, err)
	ntf := notifier.InitService(st, log)
	proc, err := processor.InitService(st, nil, sec, ntf, nil, nil, log)
	require.NoError(t, err)
	return &fixture{proc: proc, st: st, ntf: ntf, sec: sec}
}

func (f *fixture) registerUser(t *testing.T, email string) string {
	t.Helper()
	token, err := f.proc.AddNewUser(context.Background(), modeldto.Registration{Email: email, Password: "hunter2"})
	require.NoError(t, err)
	uid, _, err := f.sec.ValidateToken(token)
	require.NoError(t, err)
	return uid
}

func (f *fixture) fundUser(t *testing.T, uid string, amount string) {
	t.Helper()
	err := f.st.AddDeposit(context.Background(), uid, modelstorage.DepositDocument{
		TransactionID: "seed-" + amount,
		Amount:        amount,
		Status:        "approved",
		Type:          "deposit",
	})
	require.NoError(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	uid := f.registerUser(t, "a@mail.com")

	user, err := f.proc.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, balance.PolicyStandard, user.BalancePolicy)

	token, err := f.proc.LoginUser(ctx, modeldto.Credentials{Email: "a@mail.com", Password: "hunter2"})
	require.NoError(t, err)
	gotUID, role, err := f.sec.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uid, gotUID)
	assert.Equal(t, "user", role)

	_, err = f.proc.LoginUser(ctx, modeldto.Credentials{Email: "a@mail.com", Password: "wrong"})
	assert.Error(t, err)
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	f := newFixture(t)
	uid := f.registerUser(t, "a@mail.com")
	doc, err := f.st.GetUser(context.Background(), uid)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.PasswordHash)
	assert.NotEqual(t, "hunter2", doc.PasswordHash)
}

func TestAddNewDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")

	created, err := f.proc.AddNewDeposit(ctx, uid, modeldto.NewDeposit{Amount: "150.50", Method: "BTC"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Pending", created.Status)
	assert.Equal(t, "deposit", created.Type)
	assert.NotEmpty(t, created.TransactionID)
	assert.NotZero(t, created.CreatedAt)
	// legacy display date has three dash-separated segments with no zero padding
	segments := strings.Split(created.Date, "-")
	require.Len(t, segments, 3)
	assert.NotEqual(t, "0", segments[0][:1])

	_, err = f.proc.AddNewDeposit(ctx, uid, modeldto.NewDeposit{Amount: "-5", Method: "BTC"}, "", nil)
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = f.proc.AddNewDeposit(ctx, uid, modeldto.NewDeposit{Amount: "10"}, "", nil)
	assert.ErrorAs(t, err, &validation)
}

func TestGetBalance_Aggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")

	require.NoError(t, f.st.AddDeposit(ctx, uid, modelstorage.DepositDocument{TransactionID: "d1", Amount: "1000", Status: "approved"}))
	require.NoError(t, f.st.AddDeposit(ctx, uid, modelstorage.DepositDocument{TransactionID: "d2", Amount: "500", Status: "Pending"}))
	require.NoError(t, f.st.AddDeposit(ctx, uid, modelstorage.DepositDocument{TransactionID: "d3", Amount: "700", Status: "rejected"}))
	// pending withdrawals hold funds, rejected ones do not
	require.NoError(t, f.st.AddWithdrawal(ctx, uid, modelstorage.WithdrawalDocument{Key: 1, Amount: "100", Status: "pending"}))
	require.NoError(t, f.st.AddWithdrawal(ctx, uid, modelstorage.WithdrawalDocument{Key: 2, Amount: "50", Status: "approved"}))
	require.NoError(t, f.st.AddWithdrawal(ctx, uid, modelstorage.WithdrawalDocument{Key: 3, Amount: "30", Status: "rejected"}))
	require.NoError(t, f.st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "t1", Name: "Gold", ExpectedReturn: 10}))
	require.NoError(t, f.st.AddPlan(ctx, uid, modelstorage.PlanDocument{Key: "p1", Amount: "200", Index: 1, PlanName: "Gold"}))
	require.NoError(t, f.st.AddProfit(ctx, uid, modelstorage.ProfitDocument{ID: "pr1", Amount: "40"}))

	got, err := f.proc.GetBalance(ctx, uid)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, got.TotalDeposits, 1e-9)
	assert.InDelta(t, 150.0, got.TotalWithdrawals, 1e-9)
	assert.InDelta(t, 200.0, got.TotalInvested, 1e-9)
	assert.InDelta(t, 40.0, got.TotalProfits, 1e-9)
	assert.InDelta(t, 20.0, got.TotalInvestmentReturns, 1e-9)
	// standard: 1000 - 150 - 200 + 40 = 690
	assert.InDelta(t, 690.0, got.Balance, 1e-9)
}

func TestGetBalance_LegacyInvestorPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "legacy@mail.com")

	// force the legacy policy on the stored document
	doc, err := f.st.GetUser(ctx, uid)
	require.NoError(t, err)
	doc.BalancePolicy = balance.PolicyLegacyInvestor
	require.NoError(t, f.st.SaveUser(ctx, doc))

	require.NoError(t, f.st.AddDeposit(ctx, uid, modelstorage.DepositDocument{TransactionID: "d1", Amount: "1000", Status: "approved"}))
	require.NoError(t, f.st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "t1", Name: "Gold", ExpectedReturn: 10}))
	require.NoError(t, f.st.AddPlan(ctx, uid, modelstorage.PlanDocument{Key: "p1", Amount: "200", Index: 1, PlanName: "Gold"}))

	got, err := f.proc.GetBalance(ctx, uid)
	require.NoError(t, err)
	// invested principal excluded, positive returns added: 1000 + 20
	assert.InDelta(t, 1020.0, got.Balance, 1e-9)
}

func TestAddNewWithdrawal_FundsAndFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")
	f.fundUser(t, uid, "100")

	_, err := f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "150", Mode: "crypto", WalletType: "BTC", Destination: "bc1abc"})
	var notEnough *serviceErrors.ServiceNotEnoughFunds
	assert.ErrorAs(t, err, &notEnough)

	created, err := f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "60", Mode: "crypto", WalletType: "BTC", Destination: "bc1abc"})
	require.NoError(t, err)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, created.CreatedAt, created.Key)
}

func TestAddNewWithdrawal_FeeRaisesRequiredAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")
	f.fundUser(t, uid, "100")
	require.NoError(t, f.proc.SetWithdrawalFeePercent(ctx, "admin-1", 10))

	// 95 + 10% fee needs 104.5, only 100 available
	_, err := f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "95", Mode: "crypto", WalletType: "BTC", Destination: "bc1abc"})
	var notEnough *serviceErrors.ServiceNotEnoughFunds
	assert.ErrorAs(t, err, &notEnough)

	// a fee exempt account withdraws the same amount fine
	doc, err := f.st.GetUser(ctx, uid)
	require.NoError(t, err)
	doc.FeeExempt = true
	require.NoError(t, f.st.SaveUser(ctx, doc))
	_, err = f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "95", Mode: "crypto", WalletType: "BTC", Destination: "bc1abc"})
	assert.NoError(t, err)
}

func TestAddNewWithdrawal_CardModeLuhn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")
	f.fundUser(t, uid, "1000")

	_, err := f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "10", Mode: "card", Destination: "1234567890123456"})
	var illegalCard *serviceErrors.ServiceIllegalCardNumber
	assert.ErrorAs(t, err, &illegalCard)

	_, err = f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "10", Mode: "card", Destination: "79927398713"})
	assert.NoError(t, err)
}

func TestUpdateDepositStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")

	created, err := f.proc.AddNewDeposit(ctx, uid, modeldto.NewDeposit{Amount: "100", Method: "BTC"}, "", nil)
	require.NoError(t, err)

	require.NoError(t, f.proc.UpdateDepositStatus(ctx, "admin-1", uid, created.TransactionID, "approved"))

	updated, err := f.st.GetDeposit(ctx, uid, created.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "approved", updated.Status)

	// one notification carrying the transaction id in its link
	notifications, err := f.ntf.Fetch(ctx, uid)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, notifier.TypeDepositApproved, notifications[0].Type)
	assert.Contains(t, notifications[0].Link, created.TransactionID)

	// a second transition is rejected
	err = f.proc.UpdateDepositStatus(ctx, "admin-1", uid, created.TransactionID, "rejected")
	var illegal *serviceErrors.ServiceIllegalStatusTransition
	assert.ErrorAs(t, err, &illegal)

	// only approved/rejected are legal targets
	err = f.proc.UpdateDepositStatus(ctx, "admin-1", uid, created.TransactionID, "Pending")
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestUpdateWithdrawalStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")
	f.fundUser(t, uid, "1000")

	created, err := f.proc.AddNewWithdrawal(ctx, uid, modeldto.NewWithdrawal{Amount: "100", Mode: "crypto", WalletType: "BTC", Destination: "bc1abc"})
	require.NoError(t, err)

	require.NoError(t, f.proc.UpdateWithdrawalStatus(ctx, "admin-1", uid, created.Key, "rejected"))

	updated, err := f.st.GetWithdrawal(ctx, uid, created.Key)
	require.NoError(t, err)
	assert.Equal(t, "rejected", updated.Status)

	notifications, err := f.ntf.Fetch(ctx, uid)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, notifier.TypeWithdrawalRejected, notifications[0].Type)

	err = f.proc.UpdateWithdrawalStatus(ctx, "admin-1", uid, created.Key, "approved")
	var illegal *serviceErrors.ServiceIllegalStatusTransition
	assert.ErrorAs(t, err, &illegal)
}

type failingNotifier struct{}

func (f *failingNotifier) Create(context.Context, string, string, string, string, string) (string, error) {
	return "", errors.New("store unavailable")
}
func (f *failingNotifier) Fetch(context.Context, string) ([]modeldto.Notification, error) {
	return nil, nil
}
func (f *failingNotifier) MarkRead(context.Context, string, string) error { return nil }

type recordingQueue struct {
	entries []modelqueue.NotificationQueueEntry
}

func (r *recordingQueue) Enqueue(entry modelqueue.NotificationQueueEntry) {
	r.entries = append(r.entries, entry)
}

func TestUpdateDepositStatus_NotificationFailureIsDeferred(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	log := logger.InitLog()
	st := inkv.InitWithClient(rdb, log)
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "kd__82hf_3pq"}, false)
	require.NoError(t, err)
	queue := &recordingQueue{}
	proc, err := processor.InitService(st, nil, sec, &failingNotifier{}, nil, queue, log)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.AddDeposit(ctx, "u1", modelstorage.DepositDocument{TransactionID: "tx1", Amount: "100", Status: "Pending"}))

	err = proc.UpdateDepositStatus(ctx, "admin-1", "u1", "tx1", "approved")
	var deferred *serviceErrors.ServiceSideEffectPendingError
	assert.ErrorAs(t, err, &deferred)

	// the status change is committed regardless
	updated, err := st.GetDeposit(ctx, "u1", "tx1")
	require.NoError(t, err)
	assert.Equal(t, "approved", updated.Status)

	// and the notification is queued for retry
	require.Len(t, queue.entries, 1)
	assert.Equal(t, "u1", queue.entries[0].UserID)
}

func TestInvestInPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")
	f.fundUser(t, uid, "1000")
	require.NoError(t, f.st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "t1", Name: "Gold", MinAmount: 100, ExpectedReturn: 10}))
	require.NoError(t, f.st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "t2", Name: "Closed", Disabled: true}))

	_, err := f.proc.InvestInPlan(ctx, uid, modeldto.NewPlan{TemplateID: "t2", Amount: "200"})
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = f.proc.InvestInPlan(ctx, uid, modeldto.NewPlan{TemplateID: "t1", Amount: "50"})
	assert.ErrorAs(t, err, &validation)

	_, err = f.proc.InvestInPlan(ctx, uid, modeldto.NewPlan{TemplateID: "t1", Amount: "5000"})
	var notEnough *serviceErrors.ServiceNotEnoughFunds
	assert.ErrorAs(t, err, &notEnough)

	first, err := f.proc.InvestInPlan(ctx, uid, modeldto.NewPlan{TemplateID: "t1", Amount: "200"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "Gold", first.PlanName)

	second, err := f.proc.InvestInPlan(ctx, uid, modeldto.NewPlan{TemplateID: "t1", Amount: "100"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Index)
}

func TestGetCatalog_ExcludesDisabledAndFormatsDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "t1", Name: "Gold", ReturnDays: 30, Order: 1}))
	require.NoError(t, f.st.SaveTemplate(ctx, modelstorage.TemplateDocument{ID: "t2", Name: "Closed", Disabled: true, Order: 2}))

	catalog, err := f.proc.GetCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Gold", catalog[0].Name)
	assert.Equal(t, "1 month", catalog[0].Duration)

	all, err := f.proc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWithdrawalFeePercent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// absent setting reads as zero
	percent, err := f.proc.GetWithdrawalFeePercent(ctx)
	require.NoError(t, err)
	assert.Zero(t, percent)

	err = f.proc.SetWithdrawalFeePercent(ctx, "admin-1", 150)
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)

	err = f.proc.SetWithdrawalFeePercent(ctx, "admin-1", -1)
	assert.ErrorAs(t, err, &validation)

	// the stored value is rounded to two decimal places
	require.NoError(t, f.proc.SetWithdrawalFeePercent(ctx, "admin-1", 2.567))
	percent, err = f.proc.GetWithdrawalFeePercent(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.57, percent, 1e-9)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")

	suspended := true
	message := "terms violation"
	adjustment := -25.5
	updated, err := f.proc.UpdateUser(ctx, "admin-1", uid, modeldto.UserUpdate{
		Suspended:         &suspended,
		SuspensionMessage: &message,
		BalanceAdjustment: &adjustment,
	})
	require.NoError(t, err)
	assert.True(t, updated.Suspended)
	assert.Equal(t, "terms violation", updated.SuspensionMessage)
	assert.InDelta(t, -25.5, updated.BalanceAdjustment, 1e-9)

	badPolicy := "no-such-policy"
	_, err = f.proc.UpdateUser(ctx, "admin-1", uid, modeldto.UserUpdate{BalancePolicy: &badPolicy})
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestAddProfitCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.registerUser(t, "a@mail.com")

	created, err := f.proc.AddProfitCredit(ctx, "admin-1", uid, modeldto.NewProfit{Amount: "75"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	notifications, err := f.ntf.Fetch(ctx, uid)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, notifier.TypePlanProfit, notifications[0].Type)

	_, err = f.proc.AddProfitCredit(ctx, "admin-1", uid, modeldto.NewProfit{Amount: "0"})
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestWalletManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.proc.SaveWallet(ctx, "admin-1", modeldto.Wallet{Name: "BTC Main"})
	var validation *serviceErrors.ServiceValidationError
	assert.ErrorAs(t, err, &validation)

	saved, err := f.proc.SaveWallet(ctx, "admin-1", modeldto.Wallet{Name: "BTC Main", Network: "bitcoin", Address: "bc1abc"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	wallets, err := f.proc.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	require.NoError(t, f.proc.DeleteWallet(ctx, "admin-1", saved.ID))
	wallets, err = f.proc.ListWallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, wallets)
}
