package lock

import "context"

// AccountKeyed 任何帶有帳號的請求都可以被帳戶鎖包裝
type AccountKeyed interface {
	GetAccountNumber() string
}

// WithAccountLock 包裝一個以帳號為 key 的操作 (LockingDecorator)
//
// 執行順序: 取得鎖 -> op -> 釋放鎖。釋放放在 defer，op 正常回傳、回傳錯誤
// 或 panic 都會釋放。op 的結果原封不動回傳。
//
// 用法:
//
//	use := lock.WithAccountLock(manager, processor.Use)
//	rec, err := use(ctx, usecase.UseRequest{...})
func WithAccountLock[Req AccountKeyed, Res any](locker Locker, op func(context.Context, Req) (Res, error)) func(context.Context, Req) (Res, error) {
	return func(ctx context.Context, req Req) (Res, error) {
		handle, err := locker.Acquire(ctx, req.GetAccountNumber())
		if err != nil {
			var zero Res
			return zero, err
		}
		defer locker.Release(ctx, handle)

		return op(ctx, req)
	}
}
