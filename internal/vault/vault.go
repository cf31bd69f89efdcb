// Package vault stores and retrieves tokenized credit-card data behind a
// MySQL-backed table, encrypting card numbers at rest with Fernet.
package vault

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
	_ "github.com/go-sql-driver/mysql"
)

// Config holds the connection and encryption parameters for a Store.
type Config struct {
	DSN           string
	EncryptionKey *fernet.Key
	MaxOpenConns  int
	MaxIdleConns  int
	ConnLifetime  time.Duration
}

// Store persists token-to-card mappings in MySQL with Fernet-encrypted
// card numbers. A Store is safe for concurrent use.
type Store struct {
	db  *sql.DB
	key *fernet.Key
}

// Open connects to the configured MySQL instance and verifies reachability.
func Open(cfg Config) (*Store, error) {
	if cfg.EncryptionKey == nil {
		return nil, fmt.Errorf("vault: encryption key is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("vault: connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: ping: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	return &Store{db: db, key: cfg.EncryptionKey}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put encrypts cardNumber and records it against token, along with the
// derived card type and the first/last digits needed for display without
// ever persisting the full PAN in the clear.
func (s *Store) Put(token, cardNumber, cardType string) error {
	encrypted, err := fernet.EncryptAndSign([]byte(cardNumber), s.key)
	if err != nil {
		return fmt.Errorf("vault: encrypt: %w", err)
	}

	lastFour := lastN(cardNumber, 4)
	firstSix := firstN(cardNumber, 6)

	_, err = s.db.Exec(`
		INSERT INTO credit_cards (token, card_number_encrypted, card_type, last_four_digits, first_six_digits, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, NOW(), TRUE)
	`, token, encrypted, cardType, lastFour, firstSix)
	if err != nil {
		return fmt.Errorf("vault: insert: %w", err)
	}

	_, _ = s.db.Exec(`
		INSERT INTO token_requests (token, request_type, response_status)
		VALUES (?, 'tokenize', 200)
	`, token)

	return nil
}

// Get looks up the card number behind token, decrypting it on the way out.
// It reports ok=false when the token is unknown or inactive.
func (s *Store) Get(token string) (cardNumber string, ok bool) {
	var encrypted []byte
	err := s.db.QueryRow(`
		SELECT card_number_encrypted FROM credit_cards
		WHERE token = ? AND is_active = TRUE
	`, token).Scan(&encrypted)
	if err != nil {
		return "", false
	}

	decrypted := fernet.VerifyAndDecrypt(encrypted, 0, []*fernet.Key{s.key})
	if decrypted == nil {
		return "", false
	}

	_, _ = s.db.Exec(`
		INSERT INTO token_requests (token, request_type, response_status)
		VALUES (?, 'detokenize', 200)
	`, token)

	return string(decrypted), true
}

func lastN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
