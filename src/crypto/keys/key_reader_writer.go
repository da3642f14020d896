package keys

import (
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// KeyReaderWriter reads and writes node identity keys from/to any format or
// support.
type KeyReaderWriter interface {
	ReadKey() (crypto.PrivKey, error)
	WriteKey(crypto.PrivKey) error
}

// SimpleKeyfile implements KeyReaderWriter with unencrypted files containing
// the hex encoding of the protobuf serialized key.
type SimpleKeyfile struct {
	l       sync.Mutex
	keyfile string
}

// NewSimpleKeyfile instantiates a new SimpleKeyfile with an underlying file
func NewSimpleKeyfile(keyfile string) *SimpleKeyfile {
	simpleKeyfile := &SimpleKeyfile{
		keyfile: keyfile,
	}

	return simpleKeyfile
}

// Exists returns true if the underlying file is present.
func (k *SimpleKeyfile) Exists() bool {
	_, err := os.Stat(k.keyfile)
	return err == nil
}

// CheckFileInfo verifies that the file exists and has user permissions only.
func (k *SimpleKeyfile) CheckFileInfo() error {
	info, err := os.Stat(k.keyfile)
	if err != nil {
		return err
	}

	// get file permissions
	perm := info.Mode().Perm()

	// build 000111111 mask
	var nonUserMask os.FileMode = (1 << 6) - 1

	// get permissions for 'groups' and 'others'
	nonUserPerm := perm & nonUserMask

	if nonUserPerm != 0 {
		return fmt.Errorf("priv_key file permissions should exclude 'groups' and 'others'. Got %o", perm)
	}

	return nil
}

// ReadKey implements KeyReaderWriter.
func (k *SimpleKeyfile) ReadKey() (crypto.PrivKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	if err := k.CheckFileInfo(); err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, err
	}

	return crypto.UnmarshalPrivateKey(raw)
}

// WriteKey implements KeyReaderWriter. It creates the parent directory if
// needed and writes the file with user-only permissions.
func (k *SimpleKeyfile) WriteKey(key crypto.PrivKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	raw, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(path.Dir(k.keyfile), 0700); err != nil {
		return err
	}

	return os.WriteFile(k.keyfile, []byte(hex.EncodeToString(raw)), 0600)
}
