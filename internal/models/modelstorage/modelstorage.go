// Package modelstorage provides types for documents held in the KV store and rows of the audit ledger.

package modelstorage

type UserDocument struct {
	UID               string  `json:"uid"`
	Email             string  `json:"email"`
	PasswordHash      string  `json:"passwordHash"`
	DisplayName       string  `json:"displayName"`
	Country           string  `json:"country"`
	Phone             string  `json:"phone"`
	ReferralCode      string  `json:"referralCode,omitempty"`
	Role              string  `json:"role"`
	Suspended         bool    `json:"suspended,omitempty"`
	SuspensionMessage string  `json:"suspensionMessage,omitempty"`
	FeeExempt         bool    `json:"feeExempt,omitempty"`
	BalanceAdjustment float64 `json:"balanceAdjustment,omitempty"`
	BalancePolicy     string  `json:"balancePolicy,omitempty"`
	RegisteredAt      string  `json:"registeredAt"`
}

type DepositDocument struct {
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	CreatedAt     int64  `json:"createdAt"`
	Method        string `json:"method"`
	ProofURL      string `json:"proofURL"`
	Status        string `json:"status"`
	Type          string `json:"type"`
}

type WithdrawalDocument struct {
	Key         int64  `json:"key"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	CreatedAt   int64  `json:"createdAt"`
	Mode        string `json:"mode"`
	WalletType  string `json:"walletType"`
	Destination string `json:"destination,omitempty"`
	Phrase      string `json:"phrase,omitempty"`
	Status      string `json:"status"`
}

type PlanDocument struct {
	Key       string `json:"key"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	CreatedAt int64  `json:"createdAt"`
	Index     int    `json:"index"`
	PlanName  string `json:"planName"`
}

type TemplateDocument struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MinAmount      float64 `json:"minAmount"`
	ExpectedReturn float64 `json:"expectedReturn"`
	ReturnDays     int     `json:"returnDays"`
	Disabled       bool    `json:"disabled"`
	Order          int     `json:"order"`
}

type ProfitDocument struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	CreatedAt int64  `json:"createdAt"`
}

type NotificationDocument struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"createdAt"`
	Link      string `json:"link,omitempty"`
}

type WalletDocument struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Network string `json:"network"`
	Address string `json:"address"`
}

// AuditStorageEntry is one row of the PSQL audit ledger.
type AuditStorageEntry struct {
	ID        uint   `db:"id"`
	ActorID   string `db:"actor_id"`
	UserID    string `db:"user_id"`
	Entity    string `db:"entity"`
	EntityID  string `db:"entity_id"`
	Action    string `db:"action"`
	Detail    string `db:"detail"`
	CreatedAt string `db:"created_at"`
}
