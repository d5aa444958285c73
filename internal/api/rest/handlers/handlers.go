// Package handlers provides API endpoint handling functionality.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	handlersErrors "github.com/imellon/go-investa/internal/api/rest/errors"
	"github.com/imellon/go-investa/internal/api/rest/middleware"
	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/service/accountstate"
	"github.com/imellon/go-investa/internal/service/notifier/v1"
	"github.com/imellon/go-investa/internal/service/processor/v1"
	serviceErrors "github.com/imellon/go-investa/internal/service/processor/v1/errors"
	"github.com/imellon/go-investa/internal/service/secretary/v1"
	storageErrors "github.com/imellon/go-investa/internal/storage/v1/errors"
	"github.com/rs/zerolog"
)

const (
	requestTimeout = 500 * time.Millisecond
	// uploadTimeout covers multipart proof uploads which stream a file to disk.
	uploadTimeout = 15 * time.Second
	// maxProofSize caps proof-of-payment uploads at 8 MiB.
	maxProofSize = 8 << 20
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	service      processor.Processor
	notifier     notifier.Notifier
	sec          secretary.Secretary
	verifier     middleware.TokenVerifier
	states       *accountstate.Manager
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(mainService processor.Processor, ntf notifier.Notifier, sec secretary.Secretary, verifier middleware.TokenVerifier, states *accountstate.Manager, serverConfig *config.ServerConfig, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	if ntf == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil notifier was passed to handlers initializer"}
	}
	if sec == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil secretary was passed to handlers initializer"}
	}
	if verifier == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil token verifier was passed to handlers initializer"}
	}
	if states == nil {
		states = accountstate.NewManager()
	}
	return &Handler{
		service:      mainService,
		notifier:     ntf,
		sec:          sec,
		verifier:     verifier,
		states:       states,
		serverConfig: serverConfig,
		log:          log,
	}, nil
}

// HandleRegister processes user register requests.
func (h *Handler) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
		defer cancel()
		var registration modeldto.Registration
		if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if registration.Email == "" || registration.Password == "" {
			h.writeJSON(w, http.StatusBadRequest, modeldto.Result{Error: "Empty values are not allowed"})
			return
		}
		accessToken, err := h.service.AddNewUser(ctx, registration)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var alreadyExistsError *storageErrors.AlreadyExistsError
			var validationError *serviceErrors.ServiceValidationError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &alreadyExistsError) {
				h.writeJSON(w, http.StatusConflict, modeldto.Result{Error: handlersErrors.AuthMessage("auth/email-already-in-use")})
			} else if errors.As(err, &validationError) {
				h.writeJSON(w, http.StatusBadRequest, modeldto.Result{Error: err.Error()})
			} else {
				h.writeJSON(w, http.StatusInternalServerError, modeldto.Result{Error: handlersErrors.AuthMessage("")})
			}
			return
		}
		http.SetCookie(w, h.sec.SessionCookie(accessToken))
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleLogin processes user login requests.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var credentials modeldto.Credentials
		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if credentials.Email == "" || credentials.Password == "" {
			h.writeJSON(w, http.StatusBadRequest, modeldto.Result{Error: "Empty values are not allowed"})
			return
		}
		accessToken, err := h.service.LoginUser(ctx, credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
			var notFoundError *storageErrors.NotFoundError
			if errors.As(err, &contextTimeoutExceededError) {
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			} else if errors.As(err, &notFoundError) {
				h.writeJSON(w, http.StatusUnauthorized, modeldto.Result{Error: handlersErrors.AuthMessage("auth/invalid-credential")})
			} else {
				h.writeJSON(w, http.StatusInternalServerError, modeldto.Result{Error: handlersErrors.AuthMessage("")})
			}
			return
		}
		http.SetCookie(w, h.sec.SessionCookie(accessToken))
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleSessionCreate exchanges a verified identity token for the session cookie.
func (h *Handler) HandleSessionCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var session modeldto.Session
		if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
			h.log.Error().Err(err).Msg("HandleSessionCreate failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if session.Token == "" {
			h.writeJSON(w, http.StatusBadRequest, modeldto.Result{Error: "Empty token is not allowed"})
			return
		}
		userID, _, err := h.verifier.Verify(ctx, session.Token)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleSessionCreate failed")
			h.writeJSON(w, http.StatusUnauthorized, modeldto.Result{Error: "Invalid session token"})
			return
		}
		http.SetCookie(w, h.sec.SessionCookie(session.Token))
		h.refreshSessionState(ctx, userID)
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleSessionDelete terminates the session and clears its server-side state.
func (h *Handler) HandleSessionDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID := middleware.UserID(r.Context()); userID != "" {
			h.states.Drop(userID)
		}
		http.SetCookie(w, h.sec.ExpiredSessionCookie())
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleGetProfile processes account record query requests.
func (h *Handler) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		user, err := h.service.GetUser(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleGetProfile", err)
			return
		}
		h.writeJSON(w, http.StatusOK, user)
	}
}

// HandleUpdateProfile processes partial profile mutation requests.
func (h *Handler) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var update modeldto.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		user, err := h.service.UpdateProfile(ctx, middleware.UserID(r.Context()), update)
		if err != nil {
			h.writeError(w, "HandleUpdateProfile", err)
			return
		}
		h.writeJSON(w, http.StatusOK, user)
	}
}

// HandleGetBalance processes balance query requests.
func (h *Handler) HandleGetBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		userID := middleware.UserID(r.Context())
		currentBalance, err := h.service.GetBalance(ctx, userID)
		if err != nil {
			h.writeError(w, "HandleGetBalance", err)
			return
		}
		h.states.ForSession(userID).Set(func(st *accountstate.State) {
			st.Balance = currentBalance
			st.Loading = false
		})
		h.writeJSON(w, http.StatusOK, currentBalance)
	}
}

// HandleNewDeposit processes deposit submissions. Multipart bodies carry the
// proof-of-payment file; JSON bodies carry an already-hosted proof URL.
func (h *Handler) HandleNewDeposit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
		defer cancel()
		userID := middleware.UserID(r.Context())
		var deposit modeldto.NewDeposit
		var created modeldto.Deposit
		var err error
		if isMultipart(r) {
			if err = r.ParseMultipartForm(maxProofSize); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			deposit.Amount = r.FormValue("amount")
			deposit.Method = r.FormValue("method")
			file, header, fileErr := r.FormFile("proof")
			if fileErr != nil {
				// no file attached, an already-hosted proof URL may still be supplied
				deposit.ProofURL = r.FormValue("proofURL")
				created, err = h.service.AddNewDeposit(ctx, userID, deposit, "", nil)
			} else {
				defer file.Close()
				created, err = h.service.AddNewDeposit(ctx, userID, deposit, header.Filename, file)
			}
		} else {
			if decodeErr := json.NewDecoder(r.Body).Decode(&deposit); decodeErr != nil {
				http.Error(w, decodeErr.Error(), http.StatusBadRequest)
				return
			}
			created, err = h.service.AddNewDeposit(ctx, userID, deposit, "", nil)
		}
		if err != nil {
			h.writeError(w, "HandleNewDeposit", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// HandleGetDeposits processes deposit history query requests.
func (h *Handler) HandleGetDeposits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		deposits, err := h.service.GetDeposits(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleGetDeposits", err)
			return
		}
		h.writeJSON(w, http.StatusOK, deposits)
	}
}

// HandleNewWithdrawal processes withdrawal submissions.
func (h *Handler) HandleNewWithdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var withdrawal modeldto.NewWithdrawal
		if err := json.NewDecoder(r.Body).Decode(&withdrawal); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := h.service.AddNewWithdrawal(ctx, middleware.UserID(r.Context()), withdrawal)
		if err != nil {
			h.writeError(w, "HandleNewWithdrawal", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// HandleGetWithdrawals processes withdrawal history query requests.
func (h *Handler) HandleGetWithdrawals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		withdrawals, err := h.service.GetWithdrawals(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleGetWithdrawals", err)
			return
		}
		h.writeJSON(w, http.StatusOK, withdrawals)
	}
}

// HandleInvest processes plan investment submissions.
func (h *Handler) HandleInvest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var plan modeldto.NewPlan
		if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := h.service.InvestInPlan(ctx, middleware.UserID(r.Context()), plan)
		if err != nil {
			h.writeError(w, "HandleInvest", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// HandleGetPlans processes plan instance query requests.
func (h *Handler) HandleGetPlans() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		plans, err := h.service.GetPlans(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleGetPlans", err)
			return
		}
		h.writeJSON(w, http.StatusOK, plans)
	}
}

// HandleGetCatalog returns the plan templates open for investment.
func (h *Handler) HandleGetCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		catalog, err := h.service.GetCatalog(ctx)
		if err != nil {
			h.writeError(w, "HandleGetCatalog", err)
			return
		}
		h.writeJSON(w, http.StatusOK, catalog)
	}
}

// HandleGetNotifications processes notification query requests.
func (h *Handler) HandleGetNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		notifications, err := h.notifier.Fetch(ctx, middleware.UserID(r.Context()))
		if err != nil {
			h.writeError(w, "HandleGetNotifications", err)
			return
		}
		h.writeJSON(w, http.StatusOK, notifications)
	}
}

// HandleMarkNotificationRead flips the read flag of one notification.
func (h *Handler) HandleMarkNotificationRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		id := chi.URLParam(r, "id")
		if err := h.notifier.MarkRead(ctx, middleware.UserID(r.Context()), id); err != nil {
			h.writeError(w, "HandleMarkNotificationRead", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleListWallets returns the deposit targets shown on the deposit form.
func (h *Handler) HandleListWallets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		wallets, err := h.service.ListWallets(ctx)
		if err != nil {
			h.writeError(w, "HandleListWallets", err)
			return
		}
		h.writeJSON(w, http.StatusOK, wallets)
	}
}

// HandleListUsers processes admin account listing requests.
func (h *Handler) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		users, err := h.service.ListUsers(ctx)
		if err != nil {
			h.writeError(w, "HandleListUsers", err)
			return
		}
		h.writeJSON(w, http.StatusOK, users)
	}
}

// HandleUpdateUser processes admin account mutation requests.
func (h *Handler) HandleUpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var update modeldto.UserUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		user, err := h.service.UpdateUser(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "uid"), update)
		if err != nil {
			h.writeError(w, "HandleUpdateUser", err)
			return
		}
		h.writeJSON(w, http.StatusOK, user)
	}
}

// HandleUserDeposits lists one user's deposits for admin review.
func (h *Handler) HandleUserDeposits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		deposits, err := h.service.GetDeposits(ctx, chi.URLParam(r, "uid"))
		if err != nil {
			h.writeError(w, "HandleUserDeposits", err)
			return
		}
		h.writeJSON(w, http.StatusOK, deposits)
	}
}

// HandleUserWithdrawals lists one user's withdrawals for admin review.
func (h *Handler) HandleUserWithdrawals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		withdrawals, err := h.service.GetWithdrawals(ctx, chi.URLParam(r, "uid"))
		if err != nil {
			h.writeError(w, "HandleUserWithdrawals", err)
			return
		}
		h.writeJSON(w, http.StatusOK, withdrawals)
	}
}

// HandleDepositStatus processes admin deposit approval and rejection.
func (h *Handler) HandleDepositStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var update modeldto.StatusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err := h.service.UpdateDepositStatus(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "uid"), chi.URLParam(r, "txID"), update.Status)
		h.writeStatusResult(w, "HandleDepositStatus", err)
	}
}

// HandleWithdrawalStatus processes admin withdrawal approval and rejection.
func (h *Handler) HandleWithdrawalStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("illegal withdrawal key: %s", err.Error()), http.StatusBadRequest)
			return
		}
		var update modeldto.StatusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = h.service.UpdateWithdrawalStatus(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "uid"), key, update.Status)
		h.writeStatusResult(w, "HandleWithdrawalStatus", err)
	}
}

// HandleAddProfit processes admin profit credit requests.
func (h *Handler) HandleAddProfit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var profit modeldto.NewProfit
		if err := json.NewDecoder(r.Body).Decode(&profit); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := h.service.AddProfitCredit(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "uid"), profit)
		if err != nil {
			var sideEffectPending *serviceErrors.ServiceSideEffectPendingError
			if errors.As(err, &sideEffectPending) {
				h.writeJSON(w, http.StatusCreated, modeldto.Result{Success: true, Warning: err.Error()})
				return
			}
			h.writeError(w, "HandleAddProfit", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// HandleUserPlans lists one user's plan instances for admin review.
func (h *Handler) HandleUserPlans() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		plans, err := h.service.GetPlans(ctx, chi.URLParam(r, "uid"))
		if err != nil {
			h.writeError(w, "HandleUserPlans", err)
			return
		}
		h.writeJSON(w, http.StatusOK, plans)
	}
}

// HandleDeletePlan removes a user's plan instance.
func (h *Handler) HandleDeletePlan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		err := h.service.DeletePlan(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "uid"), chi.URLParam(r, "key"))
		if err != nil {
			h.writeError(w, "HandleDeletePlan", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleListTemplates lists every plan template including disabled ones.
func (h *Handler) HandleListTemplates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		templates, err := h.service.ListTemplates(ctx)
		if err != nil {
			h.writeError(w, "HandleListTemplates", err)
			return
		}
		h.writeJSON(w, http.StatusOK, templates)
	}
}

// HandleAddTemplate processes template creation requests.
func (h *Handler) HandleAddTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var template modeldto.PlanTemplate
		if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := h.service.AddTemplate(ctx, middleware.UserID(r.Context()), template)
		if err != nil {
			h.writeError(w, "HandleAddTemplate", err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// HandleUpdateTemplate processes partial template mutation requests.
func (h *Handler) HandleUpdateTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var update modeldto.TemplateUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err := h.service.UpdateTemplate(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "id"), update)
		if err != nil {
			h.writeError(w, "HandleUpdateTemplate", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleDeleteTemplate processes template removal requests.
func (h *Handler) HandleDeleteTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		err := h.service.DeleteTemplate(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, "HandleDeleteTemplate", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleSaveWallet processes deposit target create and replace requests.
func (h *Handler) HandleSaveWallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var wallet modeldto.Wallet
		if err := json.NewDecoder(r.Body).Decode(&wallet); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		saved, err := h.service.SaveWallet(ctx, middleware.UserID(r.Context()), wallet)
		if err != nil {
			h.writeError(w, "HandleSaveWallet", err)
			return
		}
		h.writeJSON(w, http.StatusOK, saved)
	}
}

// HandleDeleteWallet processes deposit target removal requests.
func (h *Handler) HandleDeleteWallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		err := h.service.DeleteWallet(ctx, middleware.UserID(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, "HandleDeleteWallet", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleGetWithdrawalFee returns the global withdrawal fee percent.
func (h *Handler) HandleGetWithdrawalFee() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		percent, err := h.service.GetWithdrawalFeePercent(ctx)
		if err != nil {
			h.writeError(w, "HandleGetWithdrawalFee", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.FeeSetting{Percent: percent})
	}
}

// HandleSetWithdrawalFee validates and stores the global withdrawal fee percent.
func (h *Handler) HandleSetWithdrawalFee() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		var setting modeldto.FeeSetting
		if err := json.NewDecoder(r.Body).Decode(&setting); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err := h.service.SetWithdrawalFeePercent(ctx, middleware.UserID(r.Context()), setting.Percent)
		if err != nil {
			h.writeError(w, "HandleSetWithdrawalFee", err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
	}
}

// HandleListAudit returns the most recent audit trail rows.
func (h *Handler) HandleListAudit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				http.Error(w, "illegal limit parameter", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		entries, err := h.service.ListAudit(ctx, limit)
		if err != nil {
			h.writeError(w, "HandleListAudit", err)
			return
		}
		h.writeJSON(w, http.StatusOK, entries)
	}
}

// writeStatusResult maps a status transition outcome to the mutation envelope.
// A committed transition whose notification write failed reports success with
// a warning rather than an error.
func (h *Handler) writeStatusResult(w http.ResponseWriter, op string, err error) {
	if err == nil {
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true})
		return
	}
	var sideEffectPending *serviceErrors.ServiceSideEffectPendingError
	if errors.As(err, &sideEffectPending) {
		h.log.Warn().Err(err).Msg(fmt.Sprintf("%s committed with deferred notification", op))
		h.writeJSON(w, http.StatusOK, modeldto.Result{Success: true, Warning: err.Error()})
		return
	}
	h.writeError(w, op, err)
}

// writeError maps service and storage error kinds to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	h.log.Error().Err(err).Msg(fmt.Sprintf("%s failed", op))
	var contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
	var notFoundError *storageErrors.NotFoundError
	var alreadyExistsError *storageErrors.AlreadyExistsError
	var validationError *serviceErrors.ServiceValidationError
	var notEnoughFunds *serviceErrors.ServiceNotEnoughFunds
	var illegalCardNumber *serviceErrors.ServiceIllegalCardNumber
	var illegalTransition *serviceErrors.ServiceIllegalStatusTransition
	switch {
	case errors.As(err, &contextTimeoutExceededError):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	case errors.As(err, &notFoundError):
		h.writeJSON(w, http.StatusNotFound, modeldto.Result{Error: err.Error()})
	case errors.As(err, &alreadyExistsError):
		h.writeJSON(w, http.StatusConflict, modeldto.Result{Error: err.Error()})
	case errors.As(err, &validationError):
		h.writeJSON(w, http.StatusBadRequest, modeldto.Result{Error: err.Error()})
	case errors.As(err, &notEnoughFunds):
		h.writeJSON(w, http.StatusPaymentRequired, modeldto.Result{Error: err.Error()})
	case errors.As(err, &illegalCardNumber):
		h.writeJSON(w, http.StatusUnprocessableEntity, modeldto.Result{Error: err.Error()})
	case errors.As(err, &illegalTransition):
		h.writeJSON(w, http.StatusConflict, modeldto.Result{Error: err.Error()})
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("response encoding failed")
	}
}

// refreshSessionState seeds the per-session state container after login.
func (h *Handler) refreshSessionState(ctx context.Context, userID string) {
	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		h.states.ForSession(userID).Set(func(st *accountstate.State) {
			st.Loading = false
			st.Err = err.Error()
		})
		return
	}
	currentBalance, err := h.service.GetBalance(ctx, userID)
	h.states.ForSession(userID).Set(func(st *accountstate.State) {
		st.User = &user
		st.Loading = false
		if err != nil {
			st.Err = err.Error()
			return
		}
		st.Err = ""
		st.Balance = currentBalance
	})
}

func isMultipart(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return len(contentType) >= 19 && contentType[:19] == "multipart/form-data"
}
