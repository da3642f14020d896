package keys

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// GenerateKey creates a new Ed25519 identity key.
func GenerateKey() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	return priv, err
}

// PublicKeyHex returns the 0x prefixed hex encoding of the serialized public
// key.
func PublicKeyHex(key crypto.PrivKey) (string, error) {
	raw, err := crypto.MarshalPublicKey(key.GetPublic())
	if err != nil {
		return "", err
	}
	return "0x" + strings.ToUpper(hex.EncodeToString(raw)), nil
}
