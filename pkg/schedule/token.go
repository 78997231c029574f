package schedule

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/labstack/gommon/log"
	"golang.org/x/oauth2"
)

var ErrNoToken = errors.New("no Google OAuth token found")

// FileTokenStore keeps the OAuth token as JSON on disk.
type FileTokenStore struct {
	Path string
}

func (f FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	token := new(oauth2.Token)
	if err = json.Unmarshal(data, token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return token, nil
}

func (f FileTokenStore) Save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0600)
}

// savingTokenSource writes every refreshed token back to the store.
type savingTokenSource struct {
	base  oauth2.TokenSource
	store FileTokenStore

	lock sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err = s.store.Save(token); err != nil {
			log.Errorf("cannot save refreshed token | error: %v, file: %s", err, s.store.Path)
		} else {
			log.Debugf("saved refreshed token | file: %s, expiry: %v", s.store.Path, token.Expiry)
		}
	}
	return token, nil
}
