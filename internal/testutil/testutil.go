package testutil

// MockKeyStore is a mock implementation of the storage.KeyStore interface
// for testing the formula layer without a real host store.
type MockKeyStore struct {
	Key       string
	Supported bool

	SetCalls   []string
	ClearCalls int
}

// NewMockKeyStore creates a supported store holding the given key.
// An empty key models free-tier access.
func NewMockKeyStore(key string) *MockKeyStore {
	return &MockKeyStore{Key: key, Supported: true}
}

// NewUnsupportedKeyStore creates a store reporting that the host has no
// usable storage, which must short-circuit every facade operation.
func NewUnsupportedKeyStore() *MockKeyStore {
	return &MockKeyStore{Supported: false}
}

// APIKey implements storage.KeyStore
func (m *MockKeyStore) APIKey() (string, bool) {
	return m.Key, m.Supported
}

// SetAPIKey implements storage.KeyStore
func (m *MockKeyStore) SetAPIKey(key string) error {
	m.SetCalls = append(m.SetCalls, key)
	m.Key = key
	return nil
}

// ClearAPIKey implements storage.KeyStore
func (m *MockKeyStore) ClearAPIKey() error {
	m.ClearCalls++
	m.Key = ""
	return nil
}
