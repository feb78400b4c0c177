package grpc

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
)

// 訊息欄位名稱
const (
	fieldAccountNumber   = "account_number"
	fieldUserID          = "user_id"
	fieldAmount          = "amount"
	fieldTransactionID   = "transaction_id"
	fieldInitialBalance  = "initial_balance"
	fieldAccountID       = "account_id"
	fieldType            = "type"
	fieldResult          = "result"
	fieldBalanceSnapshot = "balance_snapshot"
	fieldTransactedAt    = "transacted_at"
	fieldID              = "id"
	fieldNumber          = "number"
	fieldStatus          = "status"
	fieldBalance         = "balance"
	fieldRegisteredAt    = "registered_at"
	fieldClosedAt        = "closed_at"
	fieldAccounts        = "accounts"
)

// structpb 的數字是 float64，超過 2^53 的整數無法精確表示
const maxSafeInteger = 1 << 53

func getString(msg *structpb.Struct, key string) (string, error) {
	v, ok := msg.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s.StringValue, nil
}

func getInt(msg *structpb.Struct, key string) (int64, error) {
	v, ok := msg.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return int64(f), nil
}

func getTime(msg *structpb.Struct, key string) (time.Time, error) {
	s, err := getString(msg, key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func recordToStruct(r *domain.TransactionRecord) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTransactionID:   structpb.NewStringValue(r.TransactionID),
		fieldAccountID:       structpb.NewNumberValue(float64(r.AccountID)),
		fieldAccountNumber:   structpb.NewStringValue(r.AccountNumber),
		fieldType:            structpb.NewStringValue(string(r.Type)),
		fieldResult:          structpb.NewStringValue(string(r.Result)),
		fieldAmount:          structpb.NewNumberValue(float64(r.Amount)),
		fieldBalanceSnapshot: structpb.NewNumberValue(float64(r.BalanceSnapshot)),
		fieldTransactedAt:    structpb.NewStringValue(r.TransactedAt.UTC().Format(time.RFC3339Nano)),
	}}
}

func structToRecord(msg *structpb.Struct) (*domain.TransactionRecord, error) {
	var (
		r   domain.TransactionRecord
		err error
	)
	if r.TransactionID, err = getString(msg, fieldTransactionID); err != nil {
		return nil, err
	}
	if r.AccountID, err = getInt(msg, fieldAccountID); err != nil {
		return nil, err
	}
	if r.AccountNumber, err = getString(msg, fieldAccountNumber); err != nil {
		return nil, err
	}
	typ, err := getString(msg, fieldType)
	if err != nil {
		return nil, err
	}
	result, err := getString(msg, fieldResult)
	if err != nil {
		return nil, err
	}
	r.Type, r.Result = domain.TransactionType(typ), domain.TransactionResult(result)
	if r.Amount, err = getInt(msg, fieldAmount); err != nil {
		return nil, err
	}
	if r.BalanceSnapshot, err = getInt(msg, fieldBalanceSnapshot); err != nil {
		return nil, err
	}
	if r.TransactedAt, err = getTime(msg, fieldTransactedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func accountToStruct(a *domain.Account) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldID:           structpb.NewNumberValue(float64(a.ID)),
		fieldUserID:       structpb.NewNumberValue(float64(a.UserID)),
		fieldNumber:       structpb.NewStringValue(a.Number),
		fieldStatus:       structpb.NewStringValue(string(a.Status)),
		fieldBalance:      structpb.NewNumberValue(float64(a.Balance)),
		fieldRegisteredAt: structpb.NewStringValue(a.RegisteredAt.UTC().Format(time.RFC3339Nano)),
	}
	if a.ClosedAt != nil {
		fields[fieldClosedAt] = structpb.NewStringValue(a.ClosedAt.UTC().Format(time.RFC3339Nano))
	}
	return &structpb.Struct{Fields: fields}
}

func structToAccount(msg *structpb.Struct) (*domain.Account, error) {
	var (
		a   domain.Account
		err error
	)
	if a.ID, err = getInt(msg, fieldID); err != nil {
		return nil, err
	}
	if a.UserID, err = getInt(msg, fieldUserID); err != nil {
		return nil, err
	}
	if a.Number, err = getString(msg, fieldNumber); err != nil {
		return nil, err
	}
	status, err := getString(msg, fieldStatus)
	if err != nil {
		return nil, err
	}
	a.Status = domain.AccountStatus(status)
	if a.Balance, err = getInt(msg, fieldBalance); err != nil {
		return nil, err
	}
	if a.RegisteredAt, err = getTime(msg, fieldRegisteredAt); err != nil {
		return nil, err
	}
	if _, ok := msg.GetFields()[fieldClosedAt]; ok {
		closedAt, err := getTime(msg, fieldClosedAt)
		if err != nil {
			return nil, err
		}
		a.ClosedAt = &closedAt
	}
	return &a, nil
}

func accountsToStruct(accounts []*domain.Account) *structpb.Struct {
	list := make([]*structpb.Value, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, structpb.NewStructValue(accountToStruct(a)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldAccounts: structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

func structToAccounts(msg *structpb.Struct) ([]*domain.Account, error) {
	v, ok := msg.GetFields()[fieldAccounts]
	if !ok {
		return nil, fmt.Errorf("%s is required", fieldAccounts)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%s must be a list", fieldAccounts)
	}
	out := make([]*domain.Account, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s := item.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%s must contain objects", fieldAccounts)
		}
		a, err := structToAccount(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func newStruct(fields map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: fields}
}
