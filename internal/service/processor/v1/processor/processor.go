// Package processor provides intermediary layer functionality between the document store and API endpoint handlers.

package processor

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/google/uuid"
	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/models/modelqueue"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	"github.com/imellon/go-investa/internal/service/balance"
	"github.com/imellon/go-investa/internal/service/notifier/v1"
	notifiertypes "github.com/imellon/go-investa/internal/service/notifier/v1/notifier"
	serviceErrors "github.com/imellon/go-investa/internal/service/processor/v1/errors"
	"github.com/imellon/go-investa/internal/service/secretary/v1"
	"github.com/imellon/go-investa/internal/storage/v1"
	storageErrors "github.com/imellon/go-investa/internal/storage/v1/errors"
	"github.com/imellon/go-investa/internal/storage/v1/paths"
	"github.com/rs/zerolog"
)

// Transaction status literals. Deposits were historically written with a
// capitalized pending status while withdrawals use lowercase; both are part of
// the persisted-data contract and must not be unified.
const (
	DepositStatusPending    = "Pending"
	WithdrawalStatusPending = "pending"
	StatusApproved          = "approved"
	StatusRejected          = "rejected"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// WithdrawalModeCard marks withdrawals targeting a card number.
const WithdrawalModeCard = "card"

// RetryQueue accepts notification records whose immediate write failed.
type RetryQueue interface {
	Enqueue(entry modelqueue.NotificationQueueEntry)
}

// ProofStore persists uploaded proof-of-payment blobs and resolves their URLs.
type ProofStore interface {
	SaveProof(uid, filename string, src io.Reader) (string, error)
}

// Processor defines attributes of a struct available to its methods.
type Processor struct {
	storage   storage.Storage
	auditor   storage.Auditor
	secretary secretary.Secretary
	notifier  notifier.Notifier
	proofs    ProofStore
	retries   RetryQueue
	log       *zerolog.Logger
}

// InitService initializes an intermediary service for data processing.
func InitService(st storage.Storage, aud storage.Auditor, sec secretary.Secretary, ntf notifier.Notifier, proofs ProofStore, retries RetryQueue, log *zerolog.Logger) (*Processor, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	if ntf == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil notifier was passed to service initializer"}
	}
	return &Processor{
		storage:   st,
		auditor:   aud,
		secretary: sec,
		notifier:  ntf,
		proofs:    proofs,
		retries:   retries,
		log:       log,
	}, nil
}

// GetUserID retrieves the identity claims carried by a session token.
func (proc *Processor) GetUserID(accessToken string) (string, string, error) {
	return proc.secretary.ValidateToken(accessToken)
}

// AddNewUser processes user register requests and creates the profile document.
func (proc *Processor) AddNewUser(ctx context.Context, registration modeldto.Registration) (string, error) {
	if registration.Email == "" || registration.Password == "" {
		return "", &serviceErrors.ServiceValidationError{Msg: "email and password are required"}
	}
	accessToken, userID, err := proc.secretary.NewToken(RoleUser)
	if err != nil {
		return "", err
	}
	user := modelstorage.UserDocument{
		UID:           userID,
		Email:         registration.Email,
		PasswordHash:  proc.secretary.HashPassword(registration.Password),
		DisplayName:   registration.DisplayName,
		Country:       registration.Country,
		Phone:         registration.Phone,
		ReferralCode:  registration.ReferralCode,
		Role:          RoleUser,
		BalancePolicy: balance.PolicyStandard,
		RegisteredAt:  time.Now().Format(time.RFC3339),
	}
	err = proc.storage.AddNewUser(ctx, user)
	if err != nil {
		return "", err
	}
	return accessToken, nil
}

// LoginUser processes user login requests.
func (proc *Processor) LoginUser(ctx context.Context, credentials modeldto.Credentials) (string, error) {
	if credentials.Email == "" || credentials.Password == "" {
		return "", &serviceErrors.ServiceValidationError{Msg: "email and password are required"}
	}
	user, err := proc.storage.GetUserByEmail(ctx, credentials.Email)
	if err != nil {
		return "", err
	}
	suppliedHash := proc.secretary.HashPassword(credentials.Password)
	if subtle.ConstantTimeCompare([]byte(suppliedHash), []byte(user.PasswordHash)) != 1 {
		return "", &storageErrors.NotFoundError{}
	}
	return proc.secretary.GetTokenForUser(user.UID, user.Role)
}

// GetUser retrieves a single account record.
func (proc *Processor) GetUser(ctx context.Context, userID string) (modeldto.User, error) {
	user, err := proc.storage.GetUser(ctx, userID)
	if err != nil {
		return modeldto.User{}, err
	}
	return toUserDTO(user), nil
}

// UpdateProfile applies a partial self-service profile mutation.
func (proc *Processor) UpdateProfile(ctx context.Context, userID string, update modeldto.ProfileUpdate) (modeldto.User, error) {
	user, err := proc.storage.GetUser(ctx, userID)
	if err != nil {
		return modeldto.User{}, err
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	if update.Country != nil {
		user.Country = *update.Country
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if err := proc.storage.SaveUser(ctx, user); err != nil {
		return modeldto.User{}, err
	}
	return toUserDTO(user), nil
}

// GetBalance derives the ledger aggregates and computes the displayed balance.
func (proc *Processor) GetBalance(ctx context.Context, userID string) (modeldto.Balance, error) {
	user, err := proc.storage.GetUser(ctx, userID)
	if err != nil {
		return modeldto.Balance{}, err
	}
	aggregates, err := proc.aggregates(ctx, user)
	if err != nil {
		return modeldto.Balance{}, err
	}
	policy := balance.PolicyFor(user.UID, user.BalancePolicy)
	return modeldto.Balance{
		TotalDeposits:          aggregates.TotalDeposits,
		TotalWithdrawals:       aggregates.TotalWithdrawals,
		TotalInvested:          aggregates.TotalInvested,
		TotalProfits:           aggregates.TotalProfits,
		TotalInvestmentReturns: aggregates.TotalInvestmentReturns,
		Adjustment:             aggregates.Adjustment,
		Balance:                balance.Compute(policy, aggregates),
	}, nil
}

// aggregates sums the user's ledger: approved deposits count toward funds,
// withdrawals count unless rejected (a pending withdrawal holds funds), every
// plan instance counts as invested principal, and investment returns are
// derived from plan amounts and their template's expected return.
func (proc *Processor) aggregates(ctx context.Context, user modelstorage.UserDocument) (balance.Aggregates, error) {
	var a balance.Aggregates
	deposits, err := proc.storage.ListDeposits(ctx, user.UID)
	if err != nil {
		return a, err
	}
	for _, d := range deposits {
		if strings.EqualFold(d.Status, StatusApproved) {
			a.TotalDeposits += parseAmount(d.Amount)
		}
	}
	withdrawals, err := proc.storage.ListWithdrawals(ctx, user.UID)
	if err != nil {
		return a, err
	}
	for _, w := range withdrawals {
		if !strings.EqualFold(w.Status, StatusRejected) {
			a.TotalWithdrawals += parseAmount(w.Amount)
		}
	}
	plans, err := proc.storage.ListPlans(ctx, user.UID)
	if err != nil {
		return a, err
	}
	templates, err := proc.storage.ListTemplates(ctx)
	if err != nil {
		return a, err
	}
	returnByName := make(map[string]float64, len(templates))
	for _, t := range templates {
		returnByName[t.Name] = t.ExpectedReturn
	}
	for _, p := range plans {
		amount := parseAmount(p.Amount)
		a.TotalInvested += amount
		a.TotalInvestmentReturns += amount * returnByName[p.PlanName] / 100
	}
	profits, err := proc.storage.ListProfits(ctx, user.UID)
	if err != nil {
		return a, err
	}
	for _, p := range profits {
		a.TotalProfits += parseAmount(p.Amount)
	}
	a.Adjustment = user.BalanceAdjustment
	return a, nil
}

// AddNewDeposit processes a deposit submission. A supplied proof file is
// uploaded before the record is written; otherwise the proof URL passes
// through as-is, possibly empty.
func (proc *Processor) AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit, proofName string, proof io.Reader) (modeldto.Deposit, error) {
	if parseAmount(deposit.Amount) <= 0 {
		return modeldto.Deposit{}, &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("illegal deposit amount %q", deposit.Amount)}
	}
	if deposit.Method == "" {
		return modeldto.Deposit{}, &serviceErrors.ServiceValidationError{Msg: "payment method is required"}
	}
	proofURL := deposit.ProofURL
	if proof != nil {
		if proc.proofs == nil {
			return modeldto.Deposit{}, &serviceErrors.ServiceFoundNilArgument{Msg: "no proof store is configured"}
		}
		uploaded, err := proc.proofs.SaveProof(userID, proofName, proof)
		if err != nil {
			return modeldto.Deposit{}, err
		}
		proofURL = uploaded
	}
	now := time.Now()
	doc := modelstorage.DepositDocument{
		TransactionID: uuid.New().String(),
		Amount:        deposit.Amount,
		Date:          paths.LegacyDate(now),
		CreatedAt:     now.UnixMilli(),
		Method:        deposit.Method,
		ProofURL:      proofURL,
		Status:        DepositStatusPending,
		Type:          "deposit",
	}
	if err := proc.storage.AddDeposit(ctx, userID, doc); err != nil {
		return modeldto.Deposit{}, err
	}
	return toDepositDTO(doc), nil
}

// GetDeposits processes deposit history query requests.
func (proc *Processor) GetDeposits(ctx context.Context, userID string) ([]modeldto.Deposit, error) {
	deposits, err := proc.storage.ListDeposits(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.Deposit, 0, len(deposits))
	for _, d := range deposits {
		response = append(response, toDepositDTO(d))
	}
	return response, nil
}

// AddNewWithdrawal processes a withdrawal submission. The creation timestamp
// doubles as the record key.
func (proc *Processor) AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) (modeldto.Withdrawal, error) {
	amount := parseAmount(withdrawal.Amount)
	if amount <= 0 {
		return modeldto.Withdrawal{}, &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("illegal withdrawal amount %q", withdrawal.Amount)}
	}
	if withdrawal.Mode == WithdrawalModeCard {
		if err := goluhn.Validate(withdrawal.Destination); err != nil {
			return modeldto.Withdrawal{}, &serviceErrors.ServiceIllegalCardNumber{Msg: fmt.Sprintf("illegal card number %s", withdrawal.Destination)}
		}
	}
	user, err := proc.storage.GetUser(ctx, userID)
	if err != nil {
		return modeldto.Withdrawal{}, err
	}
	required := amount
	if !user.FeeExempt {
		feePercent, err := proc.GetWithdrawalFeePercent(ctx)
		if err != nil {
			return modeldto.Withdrawal{}, err
		}
		required = amount * (1 + feePercent/100)
	}
	current, err := proc.GetBalance(ctx, userID)
	if err != nil {
		return modeldto.Withdrawal{}, err
	}
	if current.Balance < required {
		return modeldto.Withdrawal{}, &serviceErrors.ServiceNotEnoughFunds{Msg: fmt.Sprintf("not enough funds are available, present - %v, required - %v", current.Balance, required)}
	}
	now := time.Now()
	doc := modelstorage.WithdrawalDocument{
		Key:         now.UnixMilli(),
		Amount:      withdrawal.Amount,
		Date:        paths.LegacyDate(now),
		CreatedAt:   now.UnixMilli(),
		Mode:        withdrawal.Mode,
		WalletType:  withdrawal.WalletType,
		Destination: withdrawal.Destination,
		Phrase:      withdrawal.Phrase,
		Status:      WithdrawalStatusPending,
	}
	if err := proc.storage.AddWithdrawal(ctx, userID, doc); err != nil {
		return modeldto.Withdrawal{}, err
	}
	return toWithdrawalDTO(doc), nil
}

// GetWithdrawals processes withdrawal history query requests.
func (proc *Processor) GetWithdrawals(ctx context.Context, userID string) ([]modeldto.Withdrawal, error) {
	withdrawals, err := proc.storage.ListWithdrawals(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.Withdrawal, 0, len(withdrawals))
	for _, w := range withdrawals {
		response = append(response, toWithdrawalDTO(w))
	}
	return response, nil
}

// UpdateDepositStatus transitions a pending deposit and emits its notification.
// The status write and the notification write are two separate store calls; a
// failed notification does not roll back the committed status and is queued
// for retried delivery instead.
func (proc *Processor) UpdateDepositStatus(ctx context.Context, actorID, userID, txID, status string) error {
	if status != StatusApproved && status != StatusRejected {
		return &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("illegal status %q", status)}
	}
	existing, err := proc.storage.GetDeposit(ctx, userID, txID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(existing.Status, DepositStatusPending) {
		return &serviceErrors.ServiceIllegalStatusTransition{Msg: fmt.Sprintf("deposit %s is already %s", txID, existing.Status)}
	}
	if err := proc.storage.SetDepositStatus(ctx, userID, txID, status); err != nil {
		return err
	}
	proc.recordAudit(ctx, actorID, userID, "deposit", txID, "status:"+status, existing.Amount)
	nType := notifiertypes.TypeDepositApproved
	title := "Deposit approved"
	if status == StatusRejected {
		nType = notifiertypes.TypeDepositRejected
		title = "Deposit rejected"
	}
	body := fmt.Sprintf("Your deposit of %s has been %s.", existing.Amount, status)
	link := "/transactions?tx=" + txID
	return proc.notify(ctx, userID, nType, title, body, link)
}

// UpdateWithdrawalStatus transitions a pending withdrawal and emits its notification.
func (proc *Processor) UpdateWithdrawalStatus(ctx context.Context, actorID, userID string, key int64, status string) error {
	if status != StatusApproved && status != StatusRejected {
		return &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("illegal status %q", status)}
	}
	existing, err := proc.storage.GetWithdrawal(ctx, userID, key)
	if err != nil {
		return err
	}
	if !strings.EqualFold(existing.Status, WithdrawalStatusPending) {
		return &serviceErrors.ServiceIllegalStatusTransition{Msg: fmt.Sprintf("withdrawal %d is already %s", key, existing.Status)}
	}
	if err := proc.storage.SetWithdrawalStatus(ctx, userID, key, status); err != nil {
		return err
	}
	keyString := strconv.FormatInt(key, 10)
	proc.recordAudit(ctx, actorID, userID, "withdrawal", keyString, "status:"+status, existing.Amount)
	nType := notifiertypes.TypeWithdrawalApproved
	title := "Withdrawal approved"
	if status == StatusRejected {
		nType = notifiertypes.TypeWithdrawalRejected
		title = "Withdrawal rejected"
	}
	body := fmt.Sprintf("Your withdrawal of %s has been %s.", existing.Amount, status)
	link := "/transactions?tx=" + keyString
	return proc.notify(ctx, userID, nType, title, body, link)
}

// InvestInPlan creates a plan instance under a catalog template.
func (proc *Processor) InvestInPlan(ctx context.Context, userID string, plan modeldto.NewPlan) (modeldto.Plan, error) {
	template, err := proc.storage.GetTemplate(ctx, plan.TemplateID)
	if err != nil {
		return modeldto.Plan{}, err
	}
	if template.Disabled {
		return modeldto.Plan{}, &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("plan %s is not open for investment", template.Name)}
	}
	amount := parseAmount(plan.Amount)
	if amount < template.MinAmount {
		return modeldto.Plan{}, &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("minimum investment for %s is %v", template.Name, template.MinAmount)}
	}
	current, err := proc.GetBalance(ctx, userID)
	if err != nil {
		return modeldto.Plan{}, err
	}
	if current.Balance < amount {
		return modeldto.Plan{}, &serviceErrors.ServiceNotEnoughFunds{Msg: fmt.Sprintf("not enough funds are available, present - %v, required - %v", current.Balance, amount)}
	}
	existing, err := proc.storage.ListPlans(ctx, userID)
	if err != nil {
		return modeldto.Plan{}, err
	}
	now := time.Now()
	doc := modelstorage.PlanDocument{
		Key:       uuid.New().String(),
		Amount:    plan.Amount,
		Date:      paths.LegacyDate(now),
		CreatedAt: now.UnixMilli(),
		Index:     len(existing) + 1,
		PlanName:  template.Name,
	}
	if err := proc.storage.AddPlan(ctx, userID, doc); err != nil {
		return modeldto.Plan{}, err
	}
	return toPlanDTO(doc), nil
}

// GetPlans processes plan instance query requests.
func (proc *Processor) GetPlans(ctx context.Context, userID string) ([]modeldto.Plan, error) {
	plans, err := proc.storage.ListPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.Plan, 0, len(plans))
	for _, p := range plans {
		response = append(response, toPlanDTO(p))
	}
	return response, nil
}

// DeletePlan removes a plan instance; plans have no completion transition,
// their lifecycle is create and delete only.
func (proc *Processor) DeletePlan(ctx context.Context, actorID, userID, key string) error {
	if err := proc.storage.DeletePlan(ctx, userID, key); err != nil {
		return err
	}
	proc.recordAudit(ctx, actorID, userID, "plan", key, "delete", "")
	return nil
}

// GetCatalog returns the plan templates open for investment, display-ordered.
func (proc *Processor) GetCatalog(ctx context.Context) ([]modeldto.PlanTemplate, error) {
	templates, err := proc.storage.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make([]modeldto.PlanTemplate, 0, len(templates))
	for _, t := range templates {
		if t.Disabled {
			continue
		}
		catalog = append(catalog, toTemplateDTO(t))
	}
	return catalog, nil
}

// ListTemplates returns every template including disabled ones, for admin review.
func (proc *Processor) ListTemplates(ctx context.Context) ([]modeldto.PlanTemplate, error) {
	templates, err := proc.storage.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.PlanTemplate, 0, len(templates))
	for _, t := range templates {
		response = append(response, toTemplateDTO(t))
	}
	return response, nil
}

// AddTemplate validates and persists a new catalog template.
func (proc *Processor) AddTemplate(ctx context.Context, actorID string, template modeldto.PlanTemplate) (modeldto.PlanTemplate, error) {
	if template.Name == "" {
		return modeldto.PlanTemplate{}, &serviceErrors.ServiceValidationError{Msg: "template name is required"}
	}
	if template.MinAmount < 0 {
		return modeldto.PlanTemplate{}, &serviceErrors.ServiceValidationError{Msg: "minimum amount must be non-negative"}
	}
	if template.ExpectedReturn < 0 {
		return modeldto.PlanTemplate{}, &serviceErrors.ServiceValidationError{Msg: "expected return must be non-negative"}
	}
	if template.ReturnDays < 0 {
		return modeldto.PlanTemplate{}, &serviceErrors.ServiceValidationError{Msg: "return period must be a non-negative number of days"}
	}
	doc := modelstorage.TemplateDocument{
		ID:             uuid.New().String(),
		Name:           template.Name,
		MinAmount:      template.MinAmount,
		ExpectedReturn: template.ExpectedReturn,
		ReturnDays:     template.ReturnDays,
		Disabled:       template.Disabled,
		Order:          template.Order,
	}
	if err := proc.storage.SaveTemplate(ctx, doc); err != nil {
		return modeldto.PlanTemplate{}, err
	}
	proc.recordAudit(ctx, actorID, "", "planTemplate", doc.ID, "create", doc.Name)
	return toTemplateDTO(doc), nil
}

// UpdateTemplate merges only the supplied, type-valid fields into a template.
func (proc *Processor) UpdateTemplate(ctx context.Context, actorID, id string, update modeldto.TemplateUpdate) error {
	template, err := proc.storage.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if update.Name != nil {
		if *update.Name == "" {
			return &serviceErrors.ServiceValidationError{Msg: "template name is required"}
		}
		template.Name = *update.Name
	}
	if update.MinAmount != nil {
		if *update.MinAmount < 0 {
			return &serviceErrors.ServiceValidationError{Msg: "minimum amount must be non-negative"}
		}
		template.MinAmount = *update.MinAmount
	}
	if update.ExpectedReturn != nil {
		if *update.ExpectedReturn < 0 {
			return &serviceErrors.ServiceValidationError{Msg: "expected return must be non-negative"}
		}
		template.ExpectedReturn = *update.ExpectedReturn
	}
	if update.ReturnDays != nil {
		if *update.ReturnDays < 0 {
			return &serviceErrors.ServiceValidationError{Msg: "return period must be a non-negative number of days"}
		}
		template.ReturnDays = *update.ReturnDays
	}
	if update.Disabled != nil {
		template.Disabled = *update.Disabled
	}
	if update.Order != nil {
		template.Order = *update.Order
	}
	if err := proc.storage.SaveTemplate(ctx, template); err != nil {
		return err
	}
	proc.recordAudit(ctx, actorID, "", "planTemplate", id, "update", template.Name)
	return nil
}

// DeleteTemplate removes a catalog template.
func (proc *Processor) DeleteTemplate(ctx context.Context, actorID, id string) error {
	if err := proc.storage.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	proc.recordAudit(ctx, actorID, "", "planTemplate", id, "delete", "")
	return nil
}

// AddProfitCredit issues a realized-profit credit and its notification.
func (proc *Processor) AddProfitCredit(ctx context.Context, actorID, userID string, profit modeldto.NewProfit) (modeldto.Profit, error) {
	if parseAmount(profit.Amount) <= 0 {
		return modeldto.Profit{}, &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("illegal profit amount %q", profit.Amount)}
	}
	now := time.Now()
	doc := modelstorage.ProfitDocument{
		ID:        uuid.New().String(),
		Amount:    profit.Amount,
		Date:      paths.LegacyDate(now),
		CreatedAt: now.UnixMilli(),
	}
	if err := proc.storage.AddProfit(ctx, userID, doc); err != nil {
		return modeldto.Profit{}, err
	}
	proc.recordAudit(ctx, actorID, userID, "profit", doc.ID, "create", profit.Amount)
	body := fmt.Sprintf("A profit of %s has been credited to your account.", profit.Amount)
	err := proc.notify(ctx, userID, notifiertypes.TypePlanProfit, "Profit credited", body, "/dashboard")
	if err != nil {
		return toProfitDTO(doc), err
	}
	return toProfitDTO(doc), nil
}

// ListUsers returns every account for admin review.
func (proc *Processor) ListUsers(ctx context.Context) ([]modeldto.User, error) {
	users, err := proc.storage.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.User, 0, len(users))
	for _, u := range users {
		response = append(response, toUserDTO(u))
	}
	return response, nil
}

// UpdateUser applies a partial admin-side account mutation.
func (proc *Processor) UpdateUser(ctx context.Context, actorID, userID string, update modeldto.UserUpdate) (modeldto.User, error) {
	user, err := proc.storage.GetUser(ctx, userID)
	if err != nil {
		return modeldto.User{}, err
	}
	var actions []string
	if update.Suspended != nil {
		user.Suspended = *update.Suspended
		actions = append(actions, fmt.Sprintf("suspended:%t", user.Suspended))
	}
	if update.SuspensionMessage != nil {
		user.SuspensionMessage = *update.SuspensionMessage
	}
	if update.FeeExempt != nil {
		user.FeeExempt = *update.FeeExempt
		actions = append(actions, fmt.Sprintf("feeExempt:%t", user.FeeExempt))
	}
	if update.BalanceAdjustment != nil {
		user.BalanceAdjustment = *update.BalanceAdjustment
		actions = append(actions, fmt.Sprintf("adjustment:%v", user.BalanceAdjustment))
	}
	if update.BalancePolicy != nil {
		policy := *update.BalancePolicy
		if policy != balance.PolicyStandard && policy != balance.PolicyLegacyInvestor {
			return modeldto.User{}, &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("unknown balance policy %q", policy)}
		}
		user.BalancePolicy = policy
		actions = append(actions, "policy:"+policy)
	}
	if err := proc.storage.SaveUser(ctx, user); err != nil {
		return modeldto.User{}, err
	}
	if len(actions) > 0 {
		proc.recordAudit(ctx, actorID, userID, "user", userID, strings.Join(actions, ","), "")
	}
	return toUserDTO(user), nil
}

// SaveWallet creates or replaces an admin-managed deposit target.
func (proc *Processor) SaveWallet(ctx context.Context, actorID string, wallet modeldto.Wallet) (modeldto.Wallet, error) {
	if wallet.Address == "" {
		return modeldto.Wallet{}, &serviceErrors.ServiceValidationError{Msg: "wallet address is required"}
	}
	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	doc := modelstorage.WalletDocument{
		ID:      wallet.ID,
		Name:    wallet.Name,
		Network: wallet.Network,
		Address: wallet.Address,
	}
	if err := proc.storage.SaveWallet(ctx, doc); err != nil {
		return modeldto.Wallet{}, err
	}
	proc.recordAudit(ctx, actorID, "", "wallet", wallet.ID, "save", wallet.Name)
	return wallet, nil
}

// ListWallets returns the deposit targets shown to depositing users.
func (proc *Processor) ListWallets(ctx context.Context) ([]modeldto.Wallet, error) {
	wallets, err := proc.storage.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.Wallet, 0, len(wallets))
	for _, w := range wallets {
		response = append(response, modeldto.Wallet{ID: w.ID, Name: w.Name, Network: w.Network, Address: w.Address})
	}
	return response, nil
}

// DeleteWallet removes a deposit target.
func (proc *Processor) DeleteWallet(ctx context.Context, actorID, id string) error {
	if err := proc.storage.DeleteWallet(ctx, id); err != nil {
		return err
	}
	proc.recordAudit(ctx, actorID, "", "wallet", id, "delete", "")
	return nil
}

// GetWithdrawalFeePercent returns the stored fee clamped into [0,100];
// an absent or malformed setting reads as 0.
func (proc *Processor) GetWithdrawalFeePercent(ctx context.Context) (float64, error) {
	raw, err := proc.storage.GetWithdrawalFeePercent(ctx)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, nil
	}
	if value < 0 {
		return 0, nil
	}
	if value > 100 {
		return 100, nil
	}
	return value, nil
}

// SetWithdrawalFeePercent validates the range and persists the fee rounded to
// two decimal places; an out-of-range value leaves the stored setting unchanged.
func (proc *Processor) SetWithdrawalFeePercent(ctx context.Context, actorID string, percent float64) error {
	if percent < 0 || percent > 100 {
		return &serviceErrors.ServiceValidationError{Msg: fmt.Sprintf("fee percent %v is outside [0, 100]", percent)}
	}
	rounded := math.Round(percent*100) / 100
	value := strconv.FormatFloat(rounded, 'f', -1, 64)
	if err := proc.storage.SetWithdrawalFeePercent(ctx, value); err != nil {
		return err
	}
	proc.recordAudit(ctx, actorID, "", "settings", "withdrawalFeePercent", "set:"+value, "")
	return nil
}

// ListAudit returns the most recent audit trail rows.
func (proc *Processor) ListAudit(ctx context.Context, limit int) ([]modeldto.AuditEntry, error) {
	if proc.auditor == nil {
		return nil, nil
	}
	entries, err := proc.auditor.ListAudit(ctx, limit)
	if err != nil {
		return nil, err
	}
	response := make([]modeldto.AuditEntry, 0, len(entries))
	for _, e := range entries {
		response = append(response, modeldto.AuditEntry{
			ID:        e.ID,
			ActorID:   e.ActorID,
			UserID:    e.UserID,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Action:    e.Action,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return response, nil
}

// notify writes the derived notification for a committed mutation. On failure
// the record is queued for retried delivery and the caller receives the
// partial-success error kind.
func (proc *Processor) notify(ctx context.Context, userID, nType, title, body, link string) error {
	_, err := proc.notifier.Create(ctx, userID, nType, title, body, link)
	if err == nil {
		return nil
	}
	proc.log.Error().Err(err).Msg(fmt.Sprintf("notification write failed for user %s, queueing for retry", userID))
	if proc.retries != nil {
		proc.retries.Enqueue(modelqueue.NotificationQueueEntry{
			UserID: userID,
			Notification: modelstorage.NotificationDocument{
				ID:        uuid.New().String(),
				Type:      nType,
				Title:     title,
				Body:      body,
				Read:      false,
				CreatedAt: time.Now().UnixMilli(),
				Link:      link,
			},
		})
	}
	return &serviceErrors.ServiceSideEffectPendingError{Msg: "status applied, notification delivery deferred"}
}

// recordAudit best-effort appends to the audit ledger; a ledger failure never
// fails the primary mutation.
func (proc *Processor) recordAudit(ctx context.Context, actorID, userID, entity, entityID, action, detail string) {
	if proc.auditor == nil {
		return
	}
	err := proc.auditor.RecordAudit(ctx, modelstorage.AuditStorageEntry{
		ActorID:  actorID,
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Detail:   detail,
	})
	if err != nil {
		proc.log.Error().Err(err).Msg(fmt.Sprintf("audit record failed for %s %s", entity, entityID))
	}
}

func parseAmount(amount string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return 0
	}
	return value
}

func toUserDTO(user modelstorage.UserDocument) modeldto.User {
	return modeldto.User{
		UID:               user.UID,
		Email:             user.Email,
		DisplayName:       user.DisplayName,
		Country:           user.Country,
		Phone:             user.Phone,
		ReferralCode:      user.ReferralCode,
		Role:              user.Role,
		Suspended:         user.Suspended,
		SuspensionMessage: user.SuspensionMessage,
		FeeExempt:         user.FeeExempt,
		BalanceAdjustment: user.BalanceAdjustment,
		BalancePolicy:     balance.PolicyFor(user.UID, user.BalancePolicy),
	}
}

func toDepositDTO(d modelstorage.DepositDocument) modeldto.Deposit {
	return modeldto.Deposit{
		TransactionID: d.TransactionID,
		Amount:        d.Amount,
		Date:          d.Date,
		CreatedAt:     d.CreatedAt,
		Method:        d.Method,
		ProofURL:      d.ProofURL,
		Status:        d.Status,
		Type:          d.Type,
	}
}

func toWithdrawalDTO(w modelstorage.WithdrawalDocument) modeldto.Withdrawal {
	return modeldto.Withdrawal{
		Key:         w.Key,
		Amount:      w.Amount,
		Date:        w.Date,
		CreatedAt:   w.CreatedAt,
		Mode:        w.Mode,
		WalletType:  w.WalletType,
		Destination: w.Destination,
		Phrase:      w.Phrase,
		Status:      w.Status,
	}
}

func toPlanDTO(p modelstorage.PlanDocument) modeldto.Plan {
	return modeldto.Plan{
		Key:       p.Key,
		Amount:    p.Amount,
		Date:      p.Date,
		CreatedAt: p.CreatedAt,
		Index:     p.Index,
		PlanName:  p.PlanName,
	}
}

func toProfitDTO(p modelstorage.ProfitDocument) modeldto.Profit {
	return modeldto.Profit{
		ID:        p.ID,
		Amount:    p.Amount,
		Date:      p.Date,
		CreatedAt: p.CreatedAt,
	}
}

func toTemplateDTO(t modelstorage.TemplateDocument) modeldto.PlanTemplate {
	return modeldto.PlanTemplate{
		ID:             t.ID,
		Name:           t.Name,
		MinAmount:      t.MinAmount,
		ExpectedReturn: t.ExpectedReturn,
		ReturnDays:     t.ReturnDays,
		Disabled:       t.Disabled,
		Order:          t.Order,
		Duration:       FormatDurationDays(t.ReturnDays),
	}
}
