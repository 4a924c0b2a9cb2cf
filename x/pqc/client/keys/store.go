package keys

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"golang.org/x/crypto/scrypt"

	"pqsig/x/pqc/securitykey"
	"pqsig/x/pqc/types"
)

const (
	storageDirName  = "pqc_keys"
	keysFileName    = "keys.json"
	defaultFileMode = 0o600
)

// KeyRecord describes a locally stored key as a JWK document.
type KeyRecord struct {
	Name      string                 `json:"name"`
	JWK       securitykey.JSONWebKey `json:"jwk"`
	CreatedAt time.Time              `json:"created_at"`
}

// SecurityKey imports the stored document.
func (r KeyRecord) SecurityKey() (*securitykey.SecurityKey, error) {
	return securitykey.FromJWK(r.JWK)
}

// HasPrivateKey reports whether the record carries private material.
func (r KeyRecord) HasPrivateKey() bool {
	return r.JWK.D != ""
}

type StoreOptions struct {
	passphrase []byte
	dir        string
}

type StoreOption func(*StoreOptions)

// WithPassphrase instructs the store to encrypt key material on disk using the provided passphrase.
func WithPassphrase(passphrase []byte) StoreOption {
	return func(o *StoreOptions) {
		if len(passphrase) == 0 {
			return
		}
		o.passphrase = append([]byte(nil), passphrase...)
	}
}

// WithDir overrides the keystore directory, which otherwise lives under the home directory.
func WithDir(dir string) StoreOption {
	return func(o *StoreOptions) {
		o.dir = strings.TrimSpace(dir)
	}
}

// Store manages named keys persisted as JWK records.
type Store struct {
	dir        string
	keysPath   string
	passphrase []byte

	mu   sync.RWMutex
	keys map[string]KeyRecord
}

// LoadStore initialises a key store under the provided home directory.
func LoadStore(homeDir string, opts ...StoreOption) (*Store, error) {
	optValues := StoreOptions{}
	for _, opt := range opts {
		opt(&optValues)
	}

	dir := optValues.dir
	if dir == "" {
		if homeDir == "" {
			return nil, errors.New("home directory is required")
		}
		dir = filepath.Join(homeDir, storageDirName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create pqc key directory: %w", err)
	}

	store := &Store{
		dir:      dir,
		keysPath: filepath.Join(dir, keysFileName),
		keys:     make(map[string]KeyRecord),
	}
	if len(optValues.passphrase) != 0 {
		store.passphrase = append([]byte(nil), optValues.passphrase...)
		zeroBytes(optValues.passphrase)
	}

	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Dir returns the directory holding the keystore file.
func (s *Store) Dir() string { return s.dir }

// Encrypted reports whether the store writes encrypted files.
func (s *Store) Encrypted() bool { return len(s.passphrase) != 0 }

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFileMaybeEncrypted(s.keysPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read pqc keys: %w", err)
	}

	var raw map[string]KeyRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal pqc keys: %w", err)
	}
	if raw != nil {
		s.keys = raw
	}
	return nil
}

// SaveKey stores or replaces a key record after checking the JWK imports cleanly.
func (s *Store) SaveKey(record KeyRecord) error {
	record.Name = strings.TrimSpace(record.Name)
	if record.Name == "" {
		return errors.New("key name cannot be empty")
	}
	if _, err := record.SecurityKey(); err != nil {
		return errorsmod.Wrapf(err, "key %q", record.Name)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[record.Name] = record
	return s.persistLocked()
}

// PutKey stores key under name, including the private component when present.
func (s *Store) PutKey(name string, key *securitykey.SecurityKey) error {
	return s.SaveKey(KeyRecord{
		Name: name,
		JWK:  key.ToJWK(true),
	})
}

// GetKey retrieves a key by name.
func (s *Store) GetKey(name string) (KeyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.keys[name]
	return record, ok
}

// LoadKey imports the named record as a security key.
func (s *Store) LoadKey(name string) (*securitykey.SecurityKey, error) {
	record, ok := s.GetKey(name)
	if !ok {
		return nil, types.ErrKeyNotFound.Wrapf("no key named %q", name)
	}
	return record.SecurityKey()
}

// DeleteKey removes a key by name.
func (s *Store) DeleteKey(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[name]; !ok {
		return types.ErrKeyNotFound.Wrapf("no key named %q", name)
	}
	delete(s.keys, name)
	return s.persistLocked()
}

// ListKeys returns all stored key records ordered by name.
func (s *Store) ListKeys() []KeyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KeyRecord, 0, len(s.keys))
	for _, rec := range s.keys {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.keys, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pqc store: %w", err)
	}
	data = append(data, '\n')
	if len(s.passphrase) != 0 {
		plaintext := data
		data, err = encryptBytes(s.passphrase, plaintext)
		zeroBytes(plaintext)
		if err != nil {
			return err
		}
	}

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if err := tmpFile.Chmod(defaultFileMode); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod tmp store: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write tmp store: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close tmp store: %w", err)
	}
	if err := os.Rename(tmpPath, s.keysPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("persist pqc store: %w", err)
	}
	return nil
}

const (
	encryptionMagic = "PQCENC1"
	encryptionSalt  = 16
	encryptionNonce = 12
)

func (s *Store) readFileMaybeEncrypted(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte(encryptionMagic)) {
		if len(s.passphrase) == 0 {
			return nil, fmt.Errorf("%s is encrypted; provide a PQC keystore passphrase", path)
		}
		return decryptBytes(s.passphrase, data)
	}
	return data, nil
}

func encryptBytes(passphrase, plaintext []byte) ([]byte, error) {
	salt := make([]byte, encryptionSalt)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, encryptionNonce)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, []byte(encryptionMagic))
	buf := bytes.NewBuffer(make([]byte, 0, len(encryptionMagic)+len(salt)+len(nonce)+len(ciphertext)))
	buf.WriteString(encryptionMagic)
	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(ciphertext)
	return buf.Bytes(), nil
}

func decryptBytes(passphrase, ciphertext []byte) ([]byte, error) {
	header := []byte(encryptionMagic)
	if len(ciphertext) < len(header)+encryptionSalt+encryptionNonce {
		return nil, errors.New("encrypted data truncated")
	}
	if !bytes.Equal(ciphertext[:len(header)], header) {
		return nil, errors.New("invalid encryption magic")
	}
	offset := len(header)
	salt := ciphertext[offset : offset+encryptionSalt]
	offset += encryptionSalt
	nonce := ciphertext[offset : offset+encryptionNonce]
	offset += encryptionNonce
	payload := ciphertext[offset:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, payload, header)
	if err != nil {
		return nil, fmt.Errorf("decrypt pqc keystore: %w", err)
	}
	return plaintext, nil
}

func newGCM(passphrase, salt []byte) (cipher.AEAD, error) {
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher gcm: %w", err)
	}
	return gcm, nil
}

func deriveKey(passphrase, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
