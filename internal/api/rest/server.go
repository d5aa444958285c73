// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/imellon/go-investa/internal/api/rest/client"
	"github.com/imellon/go-investa/internal/api/rest/handlers"
	"github.com/imellon/go-investa/internal/api/rest/middleware"
	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/service/accountstate"
	"github.com/imellon/go-investa/internal/service/notifier/v1/notifier"
	"github.com/imellon/go-investa/internal/service/outbox/v1/outbox"
	"github.com/imellon/go-investa/internal/service/processor/v1/processor"
	"github.com/imellon/go-investa/internal/service/secretary/v1/secretary"
	"github.com/imellon/go-investa/internal/service/uploader/v1/uploader"
	"github.com/imellon/go-investa/internal/storage/v1"
	"github.com/imellon/go-investa/internal/storage/v1/audit"
	"github.com/imellon/go-investa/internal/storage/v1/inkv"
	"github.com/rs/zerolog"
)

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger, wg *sync.WaitGroup) (server *http.Server, err error) {
	// initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig, cfg.ServerConfig.SecureCookies)
	if err != nil {
		return nil, err
	}

	// initialize token verification, remote when an identity provider is configured
	var verifier middleware.TokenVerifier
	if cfg.ServerConfig.IdentityAddress != "" {
		verifier = client.InitClient(cfg.ServerConfig, log)
	} else {
		verifier, err = middleware.NewLocalVerifier(secretaryService)
		if err != nil {
			return nil, err
		}
	}
	sessionHandler, err := middleware.NewSessionHandler(verifier)
	if err != nil {
		return nil, err
	}

	// initialize document store
	store, err := inkv.InitStorage(ctx, cfg.StorageConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize audit ledger, disabled when no DSN is configured
	var auditor storage.Auditor
	if cfg.StorageConfig.AuditDSN != "" {
		auditor, err = audit.InitLedger(ctx, cfg.StorageConfig, log)
		if err != nil {
			return nil, err
		}
	} else {
		auditor = audit.InitDisabled(log)
	}

	// initialize notifier and its retry outbox
	notifierService := notifier.InitService(store, log)
	outboxService := outbox.InitOutbox(ctx, store, log, wg, cfg.QueueConfig.WorkerNumber, cfg.QueueConfig.RetryNumber)
	outboxService.ListenAndProcess()

	// initialize proof-of-payment uploader
	uploaderService, err := uploader.InitUploader(cfg.BlobConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize main service
	mainService, err := processor.InitService(store, auditor, secretaryService, notifierService, uploaderService, outboxService, log)
	if err != nil {
		return nil, err
	}

	// initialize per-session account state
	states := accountstate.NewManager()

	// initialize page guard
	guard, err := middleware.NewPageGuard(mainService, secretaryService)
	if err != nil {
		return nil, err
	}

	// initialize handlers
	apiHandler, err := handlers.InitHandlers(mainService, notifierService, secretaryService, verifier, states, cfg.ServerConfig, log)
	if err != nil {
		return nil, err
	}

	// initialize server and set routing
	r := chi.NewRouter()
	r.Use(sessionHandler.SessionHandle)

	// session and credential endpoints, no gate
	r.Post("/api/user/register", apiHandler.HandleRegister())
	r.Post("/api/user/login", apiHandler.HandleLogin())
	r.Post("/api/session", apiHandler.HandleSessionCreate())
	r.Delete("/api/session", apiHandler.HandleSessionDelete())

	userAPI := r.Group(nil)
	userAPI.Use(middleware.RequireAuth)
	userAPI.Get("/api/user/profile", apiHandler.HandleGetProfile())
	userAPI.Patch("/api/user/profile", apiHandler.HandleUpdateProfile())
	userAPI.Get("/api/user/balance", apiHandler.HandleGetBalance())
	userAPI.Post("/api/user/deposits", apiHandler.HandleNewDeposit())
	userAPI.Get("/api/user/deposits", apiHandler.HandleGetDeposits())
	userAPI.Post("/api/user/withdrawals", apiHandler.HandleNewWithdrawal())
	userAPI.Get("/api/user/withdrawals", apiHandler.HandleGetWithdrawals())
	userAPI.Post("/api/user/plans", apiHandler.HandleInvest())
	userAPI.Get("/api/user/plans", apiHandler.HandleGetPlans())
	userAPI.Get("/api/plans/catalog", apiHandler.HandleGetCatalog())
	userAPI.Get("/api/user/notifications", apiHandler.HandleGetNotifications())
	userAPI.Post("/api/user/notifications/{id}/read", apiHandler.HandleMarkNotificationRead())
	userAPI.Get("/api/wallets", apiHandler.HandleListWallets())

	adminAPI := r.Group(nil)
	adminAPI.Use(middleware.RequireAdmin)
	adminAPI.Get("/api/admin/users", apiHandler.HandleListUsers())
	adminAPI.Patch("/api/admin/users/{uid}", apiHandler.HandleUpdateUser())
	adminAPI.Get("/api/admin/users/{uid}/deposits", apiHandler.HandleUserDeposits())
	adminAPI.Get("/api/admin/users/{uid}/withdrawals", apiHandler.HandleUserWithdrawals())
	adminAPI.Post("/api/admin/users/{uid}/deposits/{txID}/status", apiHandler.HandleDepositStatus())
	adminAPI.Post("/api/admin/users/{uid}/withdrawals/{key}/status", apiHandler.HandleWithdrawalStatus())
	adminAPI.Post("/api/admin/users/{uid}/profits", apiHandler.HandleAddProfit())
	adminAPI.Get("/api/admin/users/{uid}/plans", apiHandler.HandleUserPlans())
	adminAPI.Delete("/api/admin/users/{uid}/plans/{key}", apiHandler.HandleDeletePlan())
	adminAPI.Get("/api/admin/templates", apiHandler.HandleListTemplates())
	adminAPI.Post("/api/admin/templates", apiHandler.HandleAddTemplate())
	adminAPI.Patch("/api/admin/templates/{id}", apiHandler.HandleUpdateTemplate())
	adminAPI.Delete("/api/admin/templates/{id}", apiHandler.HandleDeleteTemplate())
	adminAPI.Post("/api/admin/wallets", apiHandler.HandleSaveWallet())
	adminAPI.Delete("/api/admin/wallets/{id}", apiHandler.HandleDeleteWallet())
	adminAPI.Get("/api/admin/settings/withdrawal-fee", apiHandler.HandleGetWithdrawalFee())
	adminAPI.Put("/api/admin/settings/withdrawal-fee", apiHandler.HandleSetWithdrawalFee())
	adminAPI.Get("/api/admin/audit", apiHandler.HandleListAudit())

	// guarded pages cover their sub-paths too, so deep links flow through the
	// same redirect policy instead of falling out as 404s
	userPages := r.Group(nil)
	userPages.Use(guard.Guard(middleware.GuardUser))
	pageRoutes := map[string]http.HandlerFunc{
		"/dashboard":      apiHandler.HandleDashboardPage(),
		"/deposit":        apiHandler.HandleDepositPage(),
		"/withdrawal":     apiHandler.HandleWithdrawalPage(),
		"/investments":    apiHandler.HandleInvestmentsPage(),
		"/my-investments": apiHandler.HandleMyInvestmentsPage(),
		"/transactions":   apiHandler.HandleTransactionsPage(),
		"/settings":       apiHandler.HandleSettingsPage(),
	}
	for path, page := range pageRoutes {
		userPages.Get(path, page)
		userPages.Get(path+"/*", page)
	}

	adminPages := r.Group(nil)
	adminPages.Use(guard.Guard(middleware.GuardAdmin))
	adminPages.Get("/admin", apiHandler.HandleAdminPage())
	adminPages.Get("/admin/*", apiHandler.HandleAdminPage())

	authPages := r.Group(nil)
	authPages.Use(guard.Guard(middleware.GuardAuthOnly))
	authPages.Get("/login", apiHandler.HandleAuthPage())
	authPages.Get("/login/*", apiHandler.HandleAuthPage())
	authPages.Get("/register", apiHandler.HandleAuthPage())
	authPages.Get("/register/*", apiHandler.HandleAuthPage())

	r.Get("/account-blocked", apiHandler.HandleAccountBlockedPage())

	// serve uploaded proof-of-payment blobs
	blobPrefix := strings.TrimSuffix(cfg.BlobConfig.PublicBaseURL, "/")
	if blobPrefix != "" && strings.HasPrefix(blobPrefix, "/") {
		fileServer := http.StripPrefix(blobPrefix, http.FileServer(http.Dir(cfg.BlobConfig.BlobDir)))
		r.Get(blobPrefix+"/*", fileServer.ServeHTTP)
	}

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}
