package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/imellon/go-investa/internal/api/rest/middleware"
	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/service/accountstate"
)

// Page payload shapes. Each guarded page route returns the data its view
// renders from; route authorization happens in the guard middleware.
type (
	dashboardPage struct {
		User          *modeldto.User          `json:"user"`
		Balance       modeldto.Balance        `json:"balance"`
		Notifications []modeldto.Notification `json:"notifications"`
	}
	depositPage struct {
		Wallets []modeldto.Wallet `json:"wallets"`
	}
	withdrawalPage struct {
		Balance    modeldto.Balance `json:"balance"`
		FeePercent float64          `json:"feePercent"`
		FeeExempt  bool             `json:"feeExempt"`
	}
	investmentsPage struct {
		Catalog []modeldto.PlanTemplate `json:"catalog"`
		Balance modeldto.Balance        `json:"balance"`
	}
	myInvestmentsPage struct {
		Plans []modeldto.Plan `json:"plans"`
	}
	transactionsPage struct {
		Deposits    []modeldto.Deposit    `json:"deposits"`
		Withdrawals []modeldto.Withdrawal `json:"withdrawals"`
	}
	settingsPage struct {
		User *modeldto.User `json:"user"`
	}
	adminPage struct {
		Users      []modeldto.User         `json:"users"`
		Templates  []modeldto.PlanTemplate `json:"templates"`
		Wallets    []modeldto.Wallet       `json:"wallets"`
		FeePercent float64                 `json:"feePercent"`
	}
	blockedPage struct {
		Message string `json:"message"`
	}
)

// HandleDashboardPage assembles the dashboard view payload and refreshes the
// session state container with the loaded snapshot.
func (h *Handler) HandleDashboardPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		userID := middleware.UserID(r.Context())
		user, err := h.service.GetUser(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleDashboardPage", err)
			return
		}
		currentBalance, err := h.service.GetBalance(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleDashboardPage", err)
			return
		}
		notifications, err := h.notifier.Fetch(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleDashboardPage", err)
			return
		}
		h.states.ForSession(userID).Set(func(st *accountstate.State) {
			st.User = &user
			st.Balance = currentBalance
			st.Loading = false
			st.Err = ""
		})
		h.writeJSON(w, http.StatusOK, dashboardPage{User: &user, Balance: currentBalance, Notifications: notifications})
	}
}

// HandleDepositPage returns the deposit targets for the deposit form.
func (h *Handler) HandleDepositPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		wallets, err := h.service.ListWallets(ctx)
		if err != nil {
			h.writeError(w, "HandleDepositPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, depositPage{Wallets: wallets})
	}
}

// HandleWithdrawalPage returns the balance and fee terms for the withdrawal form.
func (h *Handler) HandleWithdrawalPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		userID := middleware.UserID(r.Context())
		user, err := h.service.GetUser(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleWithdrawalPage", err)
			return
		}
		currentBalance, err := h.service.GetBalance(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleWithdrawalPage", err)
			return
		}
		feePercent, err := h.service.GetWithdrawalFeePercent(ctx)
		if err != nil {
			h.writeError(w, "HandleWithdrawalPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, withdrawalPage{Balance: currentBalance, FeePercent: feePercent, FeeExempt: user.FeeExempt})
	}
}

// HandleInvestmentsPage returns the open catalog and the investable balance.
func (h *Handler) HandleInvestmentsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		catalog, err := h.service.GetCatalog(ctx)
		if err != nil {
			h.writeError(w, "HandleInvestmentsPage", err)
			return
		}
		currentBalance, err := h.service.GetBalance(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleInvestmentsPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, investmentsPage{Catalog: catalog, Balance: currentBalance})
	}
}

// HandleMyInvestmentsPage returns the user's plan instances.
func (h *Handler) HandleMyInvestmentsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		plans, err := h.service.GetPlans(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleMyInvestmentsPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, myInvestmentsPage{Plans: plans})
	}
}

// HandleTransactionsPage returns the combined transaction history.
func (h *Handler) HandleTransactionsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		userID := middleware.UserID(r.Context())
		deposits, err := h.service.GetDeposits(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleTransactionsPage", err)
			return
		}
		withdrawals, err := h.service.GetWithdrawals(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleTransactionsPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, transactionsPage{Deposits: deposits, Withdrawals: withdrawals})
	}
}

// HandleSettingsPage returns the editable profile record.
func (h *Handler) HandleSettingsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		user, err := h.service.GetUser(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleSettingsPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, settingsPage{User: &user})
	}
}

// HandleAdminPage assembles the admin console payload.
func (h *Handler) HandleAdminPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// the admin console loads several collections, allow more headroom
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		users, err := h.service.ListUsers(ctx)
		if err != nil {
			h.writeError(w, "HandleAdminPage", err)
			return
		}
		templates, err := h.service.ListTemplates(ctx)
		if err != nil {
			h.writeError(w, "HandleAdminPage", err)
			return
		}
		wallets, err := h.service.ListWallets(ctx)
		if err != nil {
			h.writeError(w, "HandleAdminPage", err)
			return
		}
		feePercent, err := h.service.GetWithdrawalFeePercent(ctx)
		if err != nil {
			h.writeError(w, "HandleAdminPage", err)
			return
		}
		h.writeJSON(w, http.StatusOK, adminPage{Users: users, Templates: templates, Wallets: wallets, FeePercent: feePercent})
	}
}

// HandleAuthPage serves the login and register page payloads; the guard has
// already redirected authenticated visitors away.
func (h *Handler) HandleAuthPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleAccountBlockedPage serves the suspension notice. The guard ciphers
// the account's suspension message into the notice cookie; an absent or
// unreadable cookie falls back to the generic notice.
func (h *Handler) HandleAccountBlockedPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		message := "Your account has been suspended. Contact support for assistance."
		if cookie, err := r.Cookie(middleware.SuspensionCookieName); err == nil {
			if decoded, err := h.sec.Decode(cookie.Value); err == nil && decoded != "" {
				message = decoded
			}
		}
		h.writeJSON(w, http.StatusOK, blockedPage{Message: message})
	}
}
