package index

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"folio/internal/domain/content"
)

// Lookup returns the record stored for id when it was built from the same raw bytes.
func (s *Store) Lookup(id string, raw []byte) (content.PostRecord, bool) {
	want := Fingerprint(raw, s.salt)
	var rec content.PostRecord
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bPosts).Get([]byte(id))
		if len(v) < 8 || getU64(v) != want {
			return nil
		}
		if err := json.Unmarshal(v[8:], &rec); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return rec, found
}

func (s *Store) Store(id string, raw []byte, rec content.PostRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	v := make([]byte, 8, 8+len(body))
	putU64(v, Fingerprint(raw, s.salt))
	v = append(v, body...)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bPosts).Put([]byte(id), v)
	})
}

// Prune drops every entry whose id is not in keep.
func (s *Store) Prune(keep []string) error {
	live := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		live[id] = struct{}{}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bPosts)
		var stale [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			if _, ok := live[string(k)]; !ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len counts stored entries.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bPosts).Stats().KeyN
		return nil
	})
	return n, err
}
