// Package lock 以分散式鎖序列化同一帳號的交易
package lock

import (
	"context"
	"time"
)

// Lease 一次成功取得的租約，到期後由鎖服務自動釋放
type Lease interface {
	// Release 釋放租約。已到期或已釋放的租約不應回傳錯誤
	Release(ctx context.Context) error
}

// Provider 叢集範圍的互斥鎖 (DistributedLockProvider)
type Provider interface {
	// TryAcquire 在 wait 時間內嘗試取得 key 的鎖，租約 lease 後自動到期
	//
	// 回傳:
	//
	//	Lease: 取得成功時的租約
	//	bool: 是否在 wait 內取得
	//	error: 鎖服務本身的錯誤 (網路、連線)，與「被佔用」區分
	TryAcquire(ctx context.Context, key string, wait, lease time.Duration) (Lease, bool, error)
}
