package peers

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const discoveredPrefix = "discovered"

// BadgerPeerCache is a PeerCache persisted in a Badger database. Values are
// the CBOR encoded address lists, keyed by discoveredPrefix_<id>.
type BadgerPeerCache struct {
	db   *badger.DB
	path string
}

// NewBadgerPeerCache opens an existing database or creates a new one if
// nothing is found in path.
func NewBadgerPeerCache(path string, logger *logrus.Entry) (*BadgerPeerCache, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("ns", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerPeerCache{
		db:   handle,
		path: path,
	}, nil
}

func discoveredKey(id NodeID) []byte {
	return []byte(fmt.Sprintf("%s_%s", discoveredPrefix, id.String()))
}

// Put implements PeerCache.
func (c *BadgerPeerCache) Put(id NodeID, addrs []string) error {
	val, err := encodeAddrs(addrs)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(discoveredKey(id), val)
	})
}

// All implements PeerCache.
func (c *BadgerPeerCache) All() (map[NodeID][]string, error) {
	res := make(map[NodeID][]string)

	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(discoveredPrefix + "_")

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			id, err := ParseNodeID(strings.TrimPrefix(string(item.Key()), string(prefix)))
			if err != nil {
				return err
			}

			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			addrs, err := decodeAddrs(val)
			if err != nil {
				return err
			}

			res[id] = addrs
		}

		return nil
	})

	return res, err
}

// Close implements PeerCache.
func (c *BadgerPeerCache) Close() error {
	return c.db.Close()
}

func encodeAddrs(addrs []string) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, new(codec.CborHandle))
	if err := enc.Encode(addrs); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeAddrs(b []byte) ([]string, error) {
	var addrs []string
	dec := codec.NewDecoderBytes(b, new(codec.CborHandle))
	if err := dec.Decode(&addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}
