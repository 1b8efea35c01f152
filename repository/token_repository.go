package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenRepository 会话令牌持久化
// 令牌不存在时Load返回空串和nil
type TokenRepository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// FileTokenRepository 将令牌保存在本地文件中
type FileTokenRepository struct {
	path string // 令牌文件路径
}

// NewFileTokenRepository 创建文件令牌仓库
func NewFileTokenRepository(path string) *FileTokenRepository {
	return &FileTokenRepository{path: path}
}

// Load 读取令牌
func (f *FileTokenRepository) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file failed: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save 写入令牌，先写临时文件再重命名
func (f *FileTokenRepository) Save(ctx context.Context, token string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("write token failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file failed: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod token file failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace token file failed: %w", err)
	}
	return nil
}

// Clear 删除令牌文件，文件不存在不算错误
func (f *FileTokenRepository) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file failed: %w", err)
	}
	return nil
}
