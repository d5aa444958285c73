package storage

import (
	"context"

	"github.com/imellon/go-investa/internal/models/modelstorage"
)

type Users interface {
	AddNewUser(ctx context.Context, user modelstorage.UserDocument) error
	GetUser(ctx context.Context, uid string) (modelstorage.UserDocument, error)
	GetUserByEmail(ctx context.Context, email string) (modelstorage.UserDocument, error)
	SaveUser(ctx context.Context, user modelstorage.UserDocument) error
	ListUsers(ctx context.Context) ([]modelstorage.UserDocument, error)
}

type Deposits interface {
	AddDeposit(ctx context.Context, uid string, deposit modelstorage.DepositDocument) error
	GetDeposit(ctx context.Context, uid, txID string) (modelstorage.DepositDocument, error)
	ListDeposits(ctx context.Context, uid string) ([]modelstorage.DepositDocument, error)
	SetDepositStatus(ctx context.Context, uid, txID, status string) error
}

type Withdrawals interface {
	AddWithdrawal(ctx context.Context, uid string, withdrawal modelstorage.WithdrawalDocument) error
	GetWithdrawal(ctx context.Context, uid string, key int64) (modelstorage.WithdrawalDocument, error)
	ListWithdrawals(ctx context.Context, uid string) ([]modelstorage.WithdrawalDocument, error)
	SetWithdrawalStatus(ctx context.Context, uid string, key int64, status string) error
}

type Plans interface {
	AddPlan(ctx context.Context, uid string, plan modelstorage.PlanDocument) error
	ListPlans(ctx context.Context, uid string) ([]modelstorage.PlanDocument, error)
	DeletePlan(ctx context.Context, uid, key string) error
}

type Templates interface {
	SaveTemplate(ctx context.Context, template modelstorage.TemplateDocument) error
	GetTemplate(ctx context.Context, id string) (modelstorage.TemplateDocument, error)
	ListTemplates(ctx context.Context) ([]modelstorage.TemplateDocument, error)
	DeleteTemplate(ctx context.Context, id string) error
}

type Profits interface {
	AddProfit(ctx context.Context, uid string, profit modelstorage.ProfitDocument) error
	ListProfits(ctx context.Context, uid string) ([]modelstorage.ProfitDocument, error)
}

type Notifications interface {
	AddNotification(ctx context.Context, uid string, notification modelstorage.NotificationDocument) error
	ListNotificationsRaw(ctx context.Context, uid string) (map[string]string, error)
	MarkNotificationRead(ctx context.Context, uid, id string) error
}

type Wallets interface {
	SaveWallet(ctx context.Context, wallet modelstorage.WalletDocument) error
	ListWallets(ctx context.Context) ([]modelstorage.WalletDocument, error)
	DeleteWallet(ctx context.Context, id string) error
}

type Settings interface {
	GetWithdrawalFeePercent(ctx context.Context) (string, error)
	SetWithdrawalFeePercent(ctx context.Context, value string) error
}

type Storage interface {
	Users
	Deposits
	Withdrawals
	Plans
	Templates
	Profits
	Notifications
	Wallets
	Settings
}

// Auditor records admin-side mutations into the audit ledger.
type Auditor interface {
	RecordAudit(ctx context.Context, entry modelstorage.AuditStorageEntry) error
	ListAudit(ctx context.Context, limit int) ([]modelstorage.AuditStorageEntry, error)
}
