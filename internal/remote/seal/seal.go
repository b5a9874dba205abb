// Package seal encrypts record payloads with a household passphrase before
// they reach a remote.Store, so the store only ever holds ciphertext.
package seal

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukerupert/freezer/internal/remote"
)

// Store wraps a remote.Store and seals every payload it writes.
type Store struct {
	remote.Store
	passphrase string

	mu   sync.Mutex
	salt []byte
	keys map[string][]byte // salt -> derived key
}

// Wrap returns inner unchanged when passphrase is empty.
func Wrap(inner remote.Store, passphrase string) remote.Store {
	if passphrase == "" {
		return inner
	}
	return &Store{Store: inner, passphrase: passphrase, keys: make(map[string][]byte)}
}

func (s *Store) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[string(salt)]; ok {
		return k
	}
	k := DeriveKey(s.passphrase, salt)
	s.keys[string(salt)] = k
	return k
}

// writeSalt returns the salt shared by every payload this Store seals.
func (s *Store) writeSalt() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.salt == nil {
		salt, err := GenerateSalt()
		if err != nil {
			return nil, err
		}
		s.salt = salt
	}
	return s.salt, nil
}

func (s *Store) seal(plaintext []byte) ([]byte, error) {
	salt, err := s.writeSalt()
	if err != nil {
		return nil, err
	}
	return encrypt(plaintext, s.key(salt), salt)
}

func (s *Store) open(data []byte) ([]byte, error) {
	salt, nonce, ciphertext, err := split(data)
	if err != nil {
		return nil, err
	}
	return decrypt(nonce, ciphertext, s.key(salt))
}

func (s *Store) sealed(rec *remote.Record) (*remote.Record, error) {
	payload, err := s.seal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}
	c := *rec
	c.Payload = payload
	return &c, nil
}

func (s *Store) FetchRecord(ctx context.Context, scope remote.Scope, name string) (*remote.Record, error) {
	rec, err := s.Store.FetchRecord(ctx, scope, name)
	if err != nil {
		return nil, err
	}
	payload, err := s.open(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}

func (s *Store) SaveRecord(ctx context.Context, scope remote.Scope, rec *remote.Record) error {
	out, err := s.sealed(rec)
	if err != nil {
		return err
	}
	return s.Store.SaveRecord(ctx, scope, out)
}

func (s *Store) SaveShare(ctx context.Context, root *remote.Record, share *remote.Share) (*remote.Share, error) {
	out, err := s.sealed(root)
	if err != nil {
		return nil, err
	}
	return s.Store.SaveShare(ctx, out, share)
}
