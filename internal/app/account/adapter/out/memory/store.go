package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/usecase"
	"github.com/JoeShih716/go-account-ledger/pkg/wal"
)

type journalKind string

const (
	journalUser        journalKind = "user"
	journalAccount     journalKind = "account"
	journalTransaction journalKind = "transaction"
	// journalCommit 帳戶與交易紀錄在同一行，重播時一起生效
	journalCommit journalKind = "commit"
)

// journalEntry WAL 中的一筆紀錄，每次寫入都是完整的最新狀態
type journalEntry struct {
	Kind        journalKind               `json:"kind"`
	User        *domain.AccountUser       `json:"user,omitempty"`
	Account     *domain.Account           `json:"account,omitempty"`
	Transaction *domain.TransactionRecord `json:"transaction,omitempty"`

	Transactions []*domain.TransactionRecord `json:"transactions,omitempty"`
}

// Store 記憶體儲存 (單機模式)
//
// 結構:
//
//	users / accounts / transactions: 資料 Map
//	mu: 只保護 Map 本身，帳戶的互斥由帳戶鎖負責
//	wal: Write-Ahead Log，nil 時不持久化
type Store struct {
	mu sync.RWMutex

	users        map[int64]*domain.AccountUser
	accounts     map[string]*domain.Account // key: 帳號
	transactions map[string]*domain.TransactionRecord

	lastUserID    int64
	lastAccountID int64

	wal *wal.WAL
}

// NewStore 建立記憶體儲存，有 WAL 時先從 WAL 恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 恢復失敗
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		users:        make(map[int64]*domain.AccountUser),
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.TransactionRecord),
		wal:          w,
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverFromWAL 依序重播 WAL，只有 NewStore 呼叫，無需 Lock
func (s *Store) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var entry journalEntry
		if err := json.Unmarshal(jsonRaw, &entry); err != nil {
			return fmt.Errorf("decode journal entry: %w", err)
		}
		s.apply(&entry)
		return nil
	})
}

// apply 把一筆紀錄寫進記憶體 (不寫入 WAL)
func (s *Store) apply(entry *journalEntry) {
	switch entry.Kind {
	case journalUser:
		if entry.User == nil {
			return
		}
		s.users[entry.User.ID] = entry.User
		s.lastUserID = max(s.lastUserID, entry.User.ID)
	case journalAccount:
		if entry.Account == nil {
			return
		}
		s.accounts[entry.Account.Number] = entry.Account
		s.lastAccountID = max(s.lastAccountID, entry.Account.ID)
	case journalTransaction:
		if entry.Transaction == nil {
			return
		}
		s.transactions[entry.Transaction.TransactionID] = entry.Transaction
	case journalCommit:
		if entry.Account != nil {
			s.accounts[entry.Account.Number] = entry.Account
			s.lastAccountID = max(s.lastAccountID, entry.Account.ID)
		}
		for _, record := range entry.Transactions {
			s.transactions[record.TransactionID] = record
		}
	}
}

// commit 先寫 WAL 再寫記憶體，WAL 失敗則記憶體不變
// 呼叫端需持有寫鎖
func (s *Store) commit(entry *journalEntry) error {
	if s.wal != nil {
		if err := s.wal.Write(entry); err != nil {
			return fmt.Errorf("journal %s: %w", entry.Kind, err)
		}
	}
	s.apply(entry)
	return nil
}

// Close 關閉 WAL
func (s *Store) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

// FindUser implements usecase.UserStore.
func (s *Store) FindUser(ctx context.Context, id int64) (*domain.AccountUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// SaveUser implements usecase.UserStore.
func (s *Store) SaveUser(ctx context.Context, user *domain.AccountUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	if u.ID == 0 {
		u.ID = s.lastUserID + 1
	}
	if err := s.commit(&journalEntry{Kind: journalUser, User: &u}); err != nil {
		return err
	}
	user.ID = u.ID
	return nil
}

// CountUsers implements usecase.UserStore.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// FindByNumber implements usecase.AccountStore.
func (s *Store) FindByNumber(ctx context.Context, number string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[number]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

// FindByOwner implements usecase.AccountStore.
func (s *Store) FindByOwner(ctx context.Context, userID int64) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Account
	for _, account := range s.accounts {
		if account.OwnedBy(userID) {
			out = append(out, account.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Account) int {
		if c := a.RegisteredAt.Compare(b.RegisteredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// CountByOwner implements usecase.AccountStore.
func (s *Store) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, account := range s.accounts {
		if account.OwnedBy(userID) {
			n++
		}
	}
	return n, nil
}

// LatestAccountNumber implements usecase.AccountStore.
// 帳號固定長度，字串比較即數值比較
func (s *Store) LatestAccountNumber(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := ""
	for number := range s.accounts {
		if number > latest {
			latest = number
		}
	}
	return latest, nil
}

// SaveAccount implements usecase.AccountStore.
func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, taken := s.accounts[account.Number]
	a := account.Clone()
	if a.ID == 0 {
		if taken {
			return domain.ErrAccountAlreadyExists
		}
		a.ID = s.lastAccountID + 1
	} else {
		if !taken {
			return domain.ErrAccountNotFound
		}
		if existing.ID != a.ID {
			return domain.ErrAccountAlreadyExists
		}
	}

	if err := s.commit(&journalEntry{Kind: journalAccount, Account: a}); err != nil {
		return err
	}
	account.ID = a.ID
	return nil
}

// FindByTransactionID implements usecase.LedgerStore.
func (s *Store) FindByTransactionID(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.transactions[transactionID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return record.Clone(), nil
}

// SaveTransaction implements usecase.LedgerStore.
func (s *Store) SaveTransaction(ctx context.Context, record *domain.TransactionRecord) error {
	if record.TransactionID == "" {
		return domain.ErrArgumentNotValid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(&journalEntry{Kind: journalTransaction, Transaction: record.Clone()})
}

// Commit implements usecase.LedgerStore.
// 整筆寫成一行 WAL，殘缺的最後一行會在恢復時被捨棄
func (s *Store) Commit(ctx context.Context, account *domain.Account, records ...*domain.TransactionRecord) error {
	if account == nil {
		return domain.ErrArgumentNotValid
	}
	entry := &journalEntry{Kind: journalCommit, Account: account.Clone()}
	for _, record := range records {
		if record == nil || record.TransactionID == "" {
			return domain.ErrArgumentNotValid
		}
		entry.Transactions = append(entry.Transactions, record.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[account.Number]
	if !ok || existing.ID != account.ID {
		return domain.ErrAccountNotFound
	}
	return s.commit(entry)
}

var _ usecase.Store = (*Store)(nil)
