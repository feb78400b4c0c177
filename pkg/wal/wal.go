package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀) - 適用於大多數檔案
	FileModeReadOnly fs.FileMode = 0644

	// rwxr-xr-x - 適用於目錄
	FileModeExecutable fs.FileMode = 0755

	// rw------- (只有擁有者可讀寫) - 適用於帳本等機密檔
	FileModePrivate fs.FileMode = 0600
)

// ErrClosed WAL 已關閉
var ErrClosed = errors.New("wal: closed")

// WAL 以 JSON Lines 格式追加寫入的日誌檔
type WAL struct {
	file   *os.File
	path   string
	mu     sync.Mutex
	closed bool
}

// NewWAL 開啟或建立一個 WAL 檔案，目錄不存在時一併建立
// O_APPEND 每次寫入時自動跳到文件末尾
func NewWAL(path string) (*WAL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, FileModeExecutable); err != nil {
			return nil, fmt.Errorf("wal: create dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	return &WAL{file: file, path: path}, nil
}

// Path 回傳檔案路徑
func (w *WAL) Path() string {
	return w.path
}

// Write 寫入一筆資料並刷入硬碟，回傳成功才代表資料已落地
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wal: encode: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("wal: write: %w", err)
	}
	return w.file.Sync()
}

// Sync 強制刷入硬碟
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.file.Sync()
}

// Close 關閉檔案，可重複呼叫
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// ReadAll 從頭逐筆讀取
// callback 每次收到一行 JSON，避免一次將所有資料載入記憶體
//
// 最後一行若是當機時寫到一半的殘缺資料會被略過，
// 中間的壞資料則視為檔案損毀並回傳錯誤
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(w.file)
	lineNo := 0
	var offset int64
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// 沒有換行結尾 = 寫到一半，截掉以免之後的寫入接在殘缺資料後面
			if len(line) > 0 {
				if err := w.file.Truncate(offset); err != nil {
					return fmt.Errorf("wal: truncate partial entry: %w", err)
				}
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("wal: read: %w", err)
		}
		offset += int64(len(line))
		lineNo++
		if len(line) <= 1 {
			continue
		}
		if !json.Valid(line) {
			return fmt.Errorf("wal: corrupt entry at line %d", lineNo)
		}
		if err := callback(line); err != nil {
			return err
		}
	}
}
