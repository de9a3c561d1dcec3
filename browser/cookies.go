package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/proto"
)

// SaveCookies writes the session's cookie jar to path as JSON.
func (s *Session) SaveCookies(path string) error {
	cookies, err := s.Cookies()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("browser: marshal cookies: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("browser: cookie dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("browser: write cookies: %w", err)
	}
	return nil
}

// LoadCookies restores a jar saved by SaveCookies. A missing file is not an
// error; the first run has nothing to restore.
func (s *Session) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("browser: read cookies: %w", err)
	}
	cookies, err := decodeCookies(data)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		return nil
	}
	return s.SetCookies(proto.CookiesToParams(cookies))
}

func decodeCookies(data []byte) ([]*proto.NetworkCookie, error) {
	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("browser: parse cookies: %w", err)
	}
	return cookies, nil
}
