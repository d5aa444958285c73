// Package modeldto provides types for API request and response bodies.

package modeldto

type (
	// Registration carries the signup form fields.
	Registration struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		DisplayName  string `json:"displayName"`
		Country      string `json:"country"`
		Phone        string `json:"phone"`
		ReferralCode string `json:"referralCode,omitempty"`
	}
	// Credentials carries the login form fields.
	Credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	// User is the client-visible account record.
	User struct {
		UID               string  `json:"uid"`
		Email             string  `json:"email"`
		DisplayName       string  `json:"displayName"`
		Country           string  `json:"country"`
		Phone             string  `json:"phone"`
		ReferralCode      string  `json:"referralCode,omitempty"`
		Role              string  `json:"role"`
		Suspended         bool    `json:"suspended"`
		SuspensionMessage string  `json:"suspensionMessage,omitempty"`
		FeeExempt         bool    `json:"feeExempt"`
		BalanceAdjustment float64 `json:"balanceAdjustment"`
		BalancePolicy     string  `json:"balancePolicy"`
	}
	// ProfileUpdate is a partial self-service profile mutation.
	ProfileUpdate struct {
		DisplayName *string `json:"displayName,omitempty"`
		Country     *string `json:"country,omitempty"`
		Phone       *string `json:"phone,omitempty"`
	}
	// UserUpdate is a partial admin-side account mutation.
	UserUpdate struct {
		Suspended         *bool    `json:"suspended,omitempty"`
		SuspensionMessage *string  `json:"suspensionMessage,omitempty"`
		FeeExempt         *bool    `json:"feeExempt,omitempty"`
		BalanceAdjustment *float64 `json:"balanceAdjustment,omitempty"`
		BalancePolicy     *string  `json:"balancePolicy,omitempty"`
	}
	// Balance reports ledger aggregates and the computed balance.
	Balance struct {
		TotalDeposits          float64 `json:"totalDeposits"`
		TotalWithdrawals       float64 `json:"totalWithdrawals"`
		TotalInvested          float64 `json:"totalInvested"`
		TotalProfits           float64 `json:"totalProfits"`
		TotalInvestmentReturns float64 `json:"totalInvestmentReturns"`
		Adjustment             float64 `json:"adjustment"`
		Balance                float64 `json:"balance"`
	}
	// NewDeposit carries a deposit submission.
	NewDeposit struct {
		Amount   string `json:"amount"`
		Method   string `json:"method"`
		ProofURL string `json:"proofURL,omitempty"`
	}
	// Deposit is a deposit transaction record.
	Deposit struct {
		TransactionID string `json:"transactionId"`
		Amount        string `json:"amount"`
		Date          string `json:"date"`
		CreatedAt     int64  `json:"createdAt"`
		Method        string `json:"method"`
		ProofURL      string `json:"proofURL"`
		Status        string `json:"status"`
		Type          string `json:"type"`
	}
	// NewWithdrawal carries a withdrawal submission.
	NewWithdrawal struct {
		Amount      string `json:"amount"`
		Mode        string `json:"mode"`
		WalletType  string `json:"walletType"`
		Destination string `json:"destination,omitempty"`
		Phrase      string `json:"phrase,omitempty"`
	}
	// Withdrawal is a withdrawal transaction record.
	Withdrawal struct {
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
	// StatusUpdate carries an admin status transition.
	StatusUpdate struct {
		Status string `json:"status"`
	}
	// NewPlan carries a plan investment submission.
	NewPlan struct {
		TemplateID string `json:"templateId"`
		Amount     string `json:"amount"`
	}
	// Plan is an active plan instance.
	Plan struct {
		Key       string `json:"key"`
		Amount    string `json:"amount"`
		Date      string `json:"date"`
		CreatedAt int64  `json:"createdAt"`
		Index     int    `json:"index"`
		PlanName  string `json:"planName"`
	}
	// PlanTemplate is an admin-managed catalog entry.
	PlanTemplate struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		MinAmount      float64 `json:"minAmount"`
		ExpectedReturn float64 `json:"expectedReturn"`
		ReturnDays     int     `json:"returnDays"`
		Disabled       bool    `json:"disabled"`
		Order          int     `json:"order"`
		Duration       string  `json:"duration,omitempty"`
	}
	// TemplateUpdate is a partial template mutation; only supplied fields are merged.
	TemplateUpdate struct {
		Name           *string  `json:"name,omitempty"`
		MinAmount      *float64 `json:"minAmount,omitempty"`
		ExpectedReturn *float64 `json:"expectedReturn,omitempty"`
		ReturnDays     *int     `json:"returnDays,omitempty"`
		Disabled       *bool    `json:"disabled,omitempty"`
		Order          *int     `json:"order,omitempty"`
	}
	// NewProfit carries an admin-issued profit credit.
	NewProfit struct {
		Amount string `json:"amount"`
	}
	// Profit is a realized profit credit.
	Profit struct {
		ID        string `json:"id"`
		Amount    string `json:"amount"`
		Date      string `json:"date"`
		CreatedAt int64  `json:"createdAt"`
	}
	// Notification is a user-visible event record.
	Notification struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Title     string `json:"title"`
		Body      string `json:"body"`
		Read      bool   `json:"read"`
		CreatedAt int64  `json:"createdAt"`
		Link      string `json:"link,omitempty"`
	}
	// Wallet is an admin-managed deposit target.
	Wallet struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Network string `json:"network"`
		Address string `json:"address"`
	}
	// FeeSetting carries the global withdrawal fee percent.
	FeeSetting struct {
		Percent float64 `json:"percent"`
	}
	// Session carries the token exchanged for the session cookie.
	Session struct {
		Token string `json:"token"`
	}
	// AuditEntry is one row of the admin audit trail.
	AuditEntry struct {
		ID        uint   `json:"id"`
		ActorID   string `json:"actorId"`
		UserID    string `json:"userId"`
		Entity    string `json:"entity"`
		EntityID  string `json:"entityId"`
		Action    string `json:"action"`
		Detail    string `json:"detail"`
		CreatedAt string `json:"createdAt"`
	}
	// Result is the success/error envelope returned by mutating endpoints.
	Result struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
		Warning string `json:"warning,omitempty"`
	}
)
