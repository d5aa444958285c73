package processor

import (
	"context"
	"io"

	"github.com/imellon/go-investa/internal/models/modeldto"
)

// Accounts covers registration, login and profile handling.
type Accounts interface {
	AddNewUser(ctx context.Context, registration modeldto.Registration) (string, error)
	LoginUser(ctx context.Context, credentials modeldto.Credentials) (string, error)
	GetUser(ctx context.Context, userID string) (modeldto.User, error)
	UpdateProfile(ctx context.Context, userID string, update modeldto.ProfileUpdate) (modeldto.User, error)
	GetBalance(ctx context.Context, userID string) (modeldto.Balance, error)
}

// Transactions covers deposit and withdrawal lifecycles.
type Transactions interface {
	AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit, proofName string, proof io.Reader) (modeldto.Deposit, error)
	GetDeposits(ctx context.Context, userID string) ([]modeldto.Deposit, error)
	AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) (modeldto.Withdrawal, error)
	GetWithdrawals(ctx context.Context, userID string) ([]modeldto.Withdrawal, error)
	UpdateDepositStatus(ctx context.Context, actorID, userID, txID, status string) error
	UpdateWithdrawalStatus(ctx context.Context, actorID, userID string, key int64, status string) error
}

// Investments covers plan instances and the plan-template catalog.
type Investments interface {
	InvestInPlan(ctx context.Context, userID string, plan modeldto.NewPlan) (modeldto.Plan, error)
	GetPlans(ctx context.Context, userID string) ([]modeldto.Plan, error)
	DeletePlan(ctx context.Context, actorID, userID, key string) error
	GetCatalog(ctx context.Context) ([]modeldto.PlanTemplate, error)
	ListTemplates(ctx context.Context) ([]modeldto.PlanTemplate, error)
	AddTemplate(ctx context.Context, actorID string, template modeldto.PlanTemplate) (modeldto.PlanTemplate, error)
	UpdateTemplate(ctx context.Context, actorID, id string, update modeldto.TemplateUpdate) error
	DeleteTemplate(ctx context.Context, actorID, id string) error
	AddProfitCredit(ctx context.Context, actorID, userID string, profit modeldto.NewProfit) (modeldto.Profit, error)
}

// Administration covers admin-only account and configuration management.
type Administration interface {
	ListUsers(ctx context.Context) ([]modeldto.User, error)
	UpdateUser(ctx context.Context, actorID, userID string, update modeldto.UserUpdate) (modeldto.User, error)
	SaveWallet(ctx context.Context, actorID string, wallet modeldto.Wallet) (modeldto.Wallet, error)
	ListWallets(ctx context.Context) ([]modeldto.Wallet, error)
	DeleteWallet(ctx context.Context, actorID, id string) error
	GetWithdrawalFeePercent(ctx context.Context) (float64, error)
	SetWithdrawalFeePercent(ctx context.Context, actorID string, percent float64) error
	ListAudit(ctx context.Context, limit int) ([]modeldto.AuditEntry, error)
}

type Processor interface {
	Accounts
	Transactions
	Investments
	Administration
}

// ProofStore persists uploaded proof-of-payment blobs and resolves their URLs.
type ProofStore interface {
	SaveProof(uid, filename string, src io.Reader) (string, error)
}
