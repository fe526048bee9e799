package wallet

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Session is an explicit connection between a shell and a wallet. A
// disconnected session keeps its ID but refuses to hand out the wallet.
type Session struct {
	id     string
	mu     sync.RWMutex
	wallet *Wallet
}

func Connect(w *Wallet) *Session {
	return &Session{id: uuid.New().String(), wallet: w}
}

// NewDisconnected returns a session with no wallet attached.
func NewDisconnected() *Session {
	return &Session{id: uuid.New().String()}
}

func (s *Session) ID() string {
	return s.id
}

// Wallet returns the attached wallet or ErrNotConnected. A nil session is
// treated as disconnected.
func (s *Session) Wallet() (*Wallet, error) {
	if s == nil {
		return nil, ErrNotConnected
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return nil, ErrNotConnected
	}
	return s.wallet, nil
}

// Attach replaces the session's wallet.
func (s *Session) Attach(w *Wallet) {
	s.mu.Lock()
	s.wallet = w
	s.mu.Unlock()
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	s.wallet = nil
	s.mu.Unlock()
}

func (s *Session) Connected() bool {
	_, err := s.Wallet()
	return err == nil
}

// PublicKey returns the attached wallet's key, zero when disconnected.
func (s *Session) PublicKey() solana.PublicKey {
	w, err := s.Wallet()
	if err != nil {
		return solana.PublicKey{}
	}
	return w.PublicKey()
}
