// Package inkv implements the document store over a remote KV backend.
//
// Each member location maps to a hash field: the parent collection is the hash
// key and the member key is the field. Writes are last-write-wins; partial
// updates are read-modify-write without locking, matching the semantics of the
// hosted store the historical data was written to.
package inkv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/models/modelstorage"
	storageErrors "github.com/imellon/go-investa/internal/storage/v1/errors"
	"github.com/imellon/go-investa/internal/storage/v1/paths"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const emailIndexKey = "usersByEmail"

type Storage struct {
	Cfg *config.StorageConfig
	RDB *redis.Client
	log *zerolog.Logger
}

// InitStorage opens a connection to the document store and verifies it.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.RedisDSN)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	st := Storage{
		Cfg: cfg,
		RDB: rdb,
		log: log,
	}
	log.Info().Msg("document store connection was established")
	return &st, nil
}

// InitWithClient wraps an existing client, used by tests.
func InitWithClient(rdb *redis.Client, log *zerolog.Logger) *Storage {
	return &Storage{RDB: rdb, log: log}
}

func (s *Storage) wrapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	return &storageErrors.ExecutionKVError{Err: err}
}

// getDoc retrieves and unmarshals the document at a member location.
func (s *Storage) getDoc(ctx context.Context, path string, dest interface{}) error {
	collection, key := paths.Split(path)
	raw, err := s.RDB.HGet(ctx, collection, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &storageErrors.NotFoundError{Err: err}
		}
		return s.wrapErr(err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return &storageErrors.MarshalingKVError{Err: err}
	}
	return nil
}

// setDoc marshals and writes the document at a member location, overwriting any previous value.
func (s *Storage) setDoc(ctx context.Context, path string, doc interface{}) error {
	collection, key := paths.Split(path)
	raw, err := json.Marshal(doc)
	if err != nil {
		return &storageErrors.MarshalingKVError{Err: err}
	}
	if err := s.RDB.HSet(ctx, collection, key, string(raw)).Err(); err != nil {
		return s.wrapErr(err)
	}
	return nil
}

// patchDoc performs a partial update of the named fields only, preserving all
// other fields the stored document carries.
func (s *Storage) patchDoc(ctx context.Context, path string, fields map[string]interface{}) error {
	collection, key := paths.Split(path)
	raw, err := s.RDB.HGet(ctx, collection, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &storageErrors.NotFoundError{Err: err}
		}
		return s.wrapErr(err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return &storageErrors.MarshalingKVError{Err: err}
	}
	for k, v := range fields {
		doc[k] = v
	}
	updated, err := json.Marshal(doc)
	if err != nil {
		return &storageErrors.MarshalingKVError{Err: err}
	}
	if err := s.RDB.HSet(ctx, collection, key, string(updated)).Err(); err != nil {
		return s.wrapErr(err)
	}
	return nil
}

// listRaw retrieves all members of a collection keyed by member key.
func (s *Storage) listRaw(ctx context.Context, collection string) (map[string]string, error) {
	entries, err := s.RDB.HGetAll(ctx, collection).Result()
	if err != nil {
		return nil, s.wrapErr(err)
	}
	return entries, nil
}

func (s *Storage) deleteDoc(ctx context.Context, path string) error {
	collection, key := paths.Split(path)
	n, err := s.RDB.HDel(ctx, collection, key).Result()
	if err != nil {
		return s.wrapErr(err)
	}
	if n == 0 {
		return &storageErrors.NotFoundError{Err: nil}
	}
	return nil
}

// AddNewUser persists a new account document, enforcing email uniqueness via the email index.
func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserDocument) error {
	ok, err := s.RDB.HSetNX(ctx, emailIndexKey, user.Email, user.UID).Result()
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding new user failed for %s", user.Email))
		return s.wrapErr(err)
	}
	if !ok {
		return &storageErrors.AlreadyExistsError{Err: nil, ID: user.Email}
	}
	if err := s.setDoc(ctx, paths.User(user.UID), user); err != nil {
		// release the reserved index entry, otherwise the email stays claimed
		// by an account document that was never written
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if delErr := s.RDB.HDel(cleanupCtx, emailIndexKey, user.Email).Err(); delErr != nil {
			s.log.Error().Err(delErr).Msg(fmt.Sprintf("releasing email index failed for %s", user.Email))
		}
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding new user failed for %s", user.Email))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("adding new user done for %s", user.Email))
	return nil
}

func (s *Storage) GetUser(ctx context.Context, uid string) (modelstorage.UserDocument, error) {
	var user modelstorage.UserDocument
	err := s.getDoc(ctx, paths.User(uid), &user)
	return user, err
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (modelstorage.UserDocument, error) {
	var user modelstorage.UserDocument
	uid, err := s.RDB.HGet(ctx, emailIndexKey, email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return user, &storageErrors.NotFoundError{Err: err}
		}
		return user, s.wrapErr(err)
	}
	err = s.getDoc(ctx, paths.User(uid), &user)
	return user, err
}

// SaveUser overwrites the account document; callers merge fields beforehand.
func (s *Storage) SaveUser(ctx context.Context, user modelstorage.UserDocument) error {
	return s.setDoc(ctx, paths.User(user.UID), user)
}

func (s *Storage) ListUsers(ctx context.Context) ([]modelstorage.UserDocument, error) {
	entries, err := s.listRaw(ctx, paths.Users())
	if err != nil {
		return nil, err
	}
	users := make([]modelstorage.UserDocument, 0, len(entries))
	for _, raw := range entries {
		var user modelstorage.UserDocument
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *Storage) AddDeposit(ctx context.Context, uid string, deposit modelstorage.DepositDocument) error {
	err := s.setDoc(ctx, paths.Deposit(uid, deposit.TransactionID), deposit)
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding deposit failed for user %s", uid))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("adding deposit %s done for user %s", deposit.TransactionID, uid))
	return nil
}

func (s *Storage) GetDeposit(ctx context.Context, uid, txID string) (modelstorage.DepositDocument, error) {
	var deposit modelstorage.DepositDocument
	err := s.getDoc(ctx, paths.Deposit(uid, txID), &deposit)
	return deposit, err
}

func (s *Storage) ListDeposits(ctx context.Context, uid string) ([]modelstorage.DepositDocument, error) {
	entries, err := s.listRaw(ctx, paths.Deposits(uid))
	if err != nil {
		return nil, err
	}
	deposits := make([]modelstorage.DepositDocument, 0, len(entries))
	for _, raw := range entries {
		var deposit modelstorage.DepositDocument
		if err := json.Unmarshal([]byte(raw), &deposit); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		deposits = append(deposits, deposit)
	}
	sort.Slice(deposits, func(i, j int) bool { return deposits[i].CreatedAt > deposits[j].CreatedAt })
	return deposits, nil
}

// SetDepositStatus writes only the status field of an existing deposit record.
func (s *Storage) SetDepositStatus(ctx context.Context, uid, txID, status string) error {
	return s.patchDoc(ctx, paths.Deposit(uid, txID), map[string]interface{}{"status": status})
}

func (s *Storage) AddWithdrawal(ctx context.Context, uid string, withdrawal modelstorage.WithdrawalDocument) error {
	err := s.setDoc(ctx, paths.Withdrawal(uid, withdrawal.Key), withdrawal)
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding withdrawal failed for user %s", uid))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("adding withdrawal %d done for user %s", withdrawal.Key, uid))
	return nil
}

func (s *Storage) GetWithdrawal(ctx context.Context, uid string, key int64) (modelstorage.WithdrawalDocument, error) {
	var withdrawal modelstorage.WithdrawalDocument
	err := s.getDoc(ctx, paths.Withdrawal(uid, key), &withdrawal)
	return withdrawal, err
}

func (s *Storage) ListWithdrawals(ctx context.Context, uid string) ([]modelstorage.WithdrawalDocument, error) {
	entries, err := s.listRaw(ctx, paths.Withdrawals(uid))
	if err != nil {
		return nil, err
	}
	withdrawals := make([]modelstorage.WithdrawalDocument, 0, len(entries))
	for _, raw := range entries {
		var withdrawal modelstorage.WithdrawalDocument
		if err := json.Unmarshal([]byte(raw), &withdrawal); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		withdrawals = append(withdrawals, withdrawal)
	}
	sort.Slice(withdrawals, func(i, j int) bool { return withdrawals[i].CreatedAt > withdrawals[j].CreatedAt })
	return withdrawals, nil
}

// SetWithdrawalStatus writes only the status field of an existing withdrawal record.
func (s *Storage) SetWithdrawalStatus(ctx context.Context, uid string, key int64, status string) error {
	return s.patchDoc(ctx, paths.Withdrawal(uid, key), map[string]interface{}{"status": status})
}

func (s *Storage) AddPlan(ctx context.Context, uid string, plan modelstorage.PlanDocument) error {
	return s.setDoc(ctx, paths.Plan(uid, plan.Key), plan)
}

func (s *Storage) ListPlans(ctx context.Context, uid string) ([]modelstorage.PlanDocument, error) {
	entries, err := s.listRaw(ctx, paths.Plans(uid))
	if err != nil {
		return nil, err
	}
	plans := make([]modelstorage.PlanDocument, 0, len(entries))
	for _, raw := range entries {
		var plan modelstorage.PlanDocument
		if err := json.Unmarshal([]byte(raw), &plan); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Index < plans[j].Index })
	return plans, nil
}

func (s *Storage) DeletePlan(ctx context.Context, uid, key string) error {
	return s.deleteDoc(ctx, paths.Plan(uid, key))
}

func (s *Storage) SaveTemplate(ctx context.Context, template modelstorage.TemplateDocument) error {
	return s.setDoc(ctx, paths.Template(template.ID), template)
}

func (s *Storage) GetTemplate(ctx context.Context, id string) (modelstorage.TemplateDocument, error) {
	var template modelstorage.TemplateDocument
	err := s.getDoc(ctx, paths.Template(id), &template)
	return template, err
}

func (s *Storage) ListTemplates(ctx context.Context) ([]modelstorage.TemplateDocument, error) {
	entries, err := s.listRaw(ctx, paths.Templates())
	if err != nil {
		return nil, err
	}
	templates := make([]modelstorage.TemplateDocument, 0, len(entries))
	for _, raw := range entries {
		var template modelstorage.TemplateDocument
		if err := json.Unmarshal([]byte(raw), &template); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		templates = append(templates, template)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Order < templates[j].Order })
	return templates, nil
}

func (s *Storage) DeleteTemplate(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, paths.Template(id))
}

func (s *Storage) AddProfit(ctx context.Context, uid string, profit modelstorage.ProfitDocument) error {
	return s.setDoc(ctx, paths.Profit(uid, profit.ID), profit)
}

func (s *Storage) ListProfits(ctx context.Context, uid string) ([]modelstorage.ProfitDocument, error) {
	entries, err := s.listRaw(ctx, paths.Profits(uid))
	if err != nil {
		return nil, err
	}
	profits := make([]modelstorage.ProfitDocument, 0, len(entries))
	for _, raw := range entries {
		var profit modelstorage.ProfitDocument
		if err := json.Unmarshal([]byte(raw), &profit); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		profits = append(profits, profit)
	}
	return profits, nil
}

func (s *Storage) AddNotification(ctx context.Context, uid string, notification modelstorage.NotificationDocument) error {
	return s.setDoc(ctx, paths.Notification(uid, notification.ID), notification)
}

// ListNotificationsRaw returns undecoded notification documents; the notifier
// coerces them field by field so one malformed record cannot fail the fetch.
func (s *Storage) ListNotificationsRaw(ctx context.Context, uid string) (map[string]string, error) {
	return s.listRaw(ctx, paths.Notifications(uid))
}

// MarkNotificationRead writes only the read flag of an existing notification.
func (s *Storage) MarkNotificationRead(ctx context.Context, uid, id string) error {
	return s.patchDoc(ctx, paths.Notification(uid, id), map[string]interface{}{"read": true})
}

func (s *Storage) SaveWallet(ctx context.Context, wallet modelstorage.WalletDocument) error {
	return s.setDoc(ctx, paths.Wallet(wallet.ID), wallet)
}

func (s *Storage) ListWallets(ctx context.Context) ([]modelstorage.WalletDocument, error) {
	entries, err := s.listRaw(ctx, paths.Wallets())
	if err != nil {
		return nil, err
	}
	wallets := make([]modelstorage.WalletDocument, 0, len(entries))
	for _, raw := range entries {
		var wallet modelstorage.WalletDocument
		if err := json.Unmarshal([]byte(raw), &wallet); err != nil {
			return nil, &storageErrors.MarshalingKVError{Err: err}
		}
		wallets = append(wallets, wallet)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return wallets, nil
}

func (s *Storage) DeleteWallet(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, paths.Wallet(id))
}

// GetWithdrawalFeePercent returns the raw stored setting; absence is not an error.
func (s *Storage) GetWithdrawalFeePercent(ctx context.Context) (string, error) {
	collection, key := paths.Split(paths.WithdrawalFeeSetting())
	raw, err := s.RDB.HGet(ctx, collection, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", s.wrapErr(err)
	}
	return raw, nil
}

func (s *Storage) SetWithdrawalFeePercent(ctx context.Context, value string) error {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return &storageErrors.MarshalingKVError{Err: err}
	}
	collection, key := paths.Split(paths.WithdrawalFeeSetting())
	if err := s.RDB.HSet(ctx, collection, key, value).Err(); err != nil {
		return s.wrapErr(err)
	}
	return nil
}
