package session

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// Store supplies the authenticated identity for the current console
// session. Values are read on demand, not watched; a login replaces the
// backing file and the next read picks it up.
type Store interface {
	EmployeeID() string
	Token() string
}

type fileSession struct {
	EmployeeID  string `json:"employee_id"`
	AccessToken string `json:"access_token"`
}

// FileStore reads the session file the console writes at login, the
// agent-side equivalent of the browser's session cookie.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) read() fileSession {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fileSession{}
	}
	var sess fileSession
	if err := json.Unmarshal(data, &sess); err != nil {
		zap.L().Warn("malformed session file", zap.String("path", s.path), zap.Error(err))
		return fileSession{}
	}
	return sess
}

func (s *FileStore) EmployeeID() string {
	return s.read().EmployeeID
}

func (s *FileStore) Token() string {
	return s.read().AccessToken
}

// StaticStore holds fixed credentials, used in tests and for env-based
// deployments.
type StaticStore struct {
	ID          string
	AccessToken string
}

func (s StaticStore) EmployeeID() string { return s.ID }
func (s StaticStore) Token() string      { return s.AccessToken }
