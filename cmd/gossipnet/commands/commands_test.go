package commands

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/gossipnet/src/crypto/keys"
	"github.com/mosaicnetworks/gossipnet/src/peers"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	toml := `
moniker = "alice"
chain-name = "testnet"
known-addresses = ["/ip4/10.0.0.1/tcp/1234"]
`
	if err := ioutil.WriteFile(filepath.Join(dir, "gossipnet.toml"), []byte(toml), 0600); err != nil {
		t.Fatalf("err: %v", err)
	}

	cmd := NewRunCmd()
	if err := cmd.Flags().Set("datadir", dir); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := cmd.Flags().Set("listen", "127.0.0.1:9999"); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := loadConfig(cmd, nil); err != nil {
		t.Fatalf("err: %v", err)
	}

	conf := _config.Gossipnet

	if conf.DataDir != dir {
		t.Fatalf("DataDir should be %s, not %s", dir, conf.DataDir)
	}
	if conf.Moniker != "alice" {
		t.Fatalf("Moniker should be alice, not %s", conf.Moniker)
	}
	if conf.ChainName != "testnet" {
		t.Fatalf("ChainName should be testnet, not %s", conf.ChainName)
	}
	if conf.BindAddr != "127.0.0.1:9999" {
		t.Fatalf("BindAddr should come from the flag, got %s", conf.BindAddr)
	}
	if len(conf.KnownAddresses) != 1 || conf.KnownAddresses[0] != "/ip4/10.0.0.1/tcp/1234" {
		t.Fatalf("unexpected KnownAddresses %v", conf.KnownAddresses)
	}
	if expected := filepath.Join(dir, "badger_db"); conf.DatabaseDir != expected {
		t.Fatalf("DatabaseDir should be %s, not %s", expected, conf.DatabaseDir)
	}
}

func TestKeygen(t *testing.T) {
	dir := t.TempDir()

	privKeyFile = filepath.Join(dir, "keys", "priv_key")
	pubKeyFile = filepath.Join(dir, "keys", "key.pub")

	if err := keygen(nil, nil); err != nil {
		t.Fatalf("err: %v", err)
	}

	key, err := keys.NewSimpleKeyfile(privKeyFile).ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	pub, err := ioutil.ReadFile(pubKeyFile)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	expected, err := keys.PublicKeyHex(key)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if string(pub) != expected {
		t.Fatalf("public key file should contain %s, not %s", expected, pub)
	}

	if _, err := peers.NodeIDFromKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := keygen(nil, nil); err == nil {
		t.Fatalf("keygen should refuse to overwrite an existing key")
	}
}
