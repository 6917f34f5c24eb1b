package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"phonesim/pkg/logger"
	"phonesim/pkg/models"
	"phonesim/pkg/phone"

	"github.com/cockroachdb/pebble"
)

var (
	db     *pebble.DB
	dbPath string
)

// Document keys. The engine persists two small documents rather than
// per-record keys: the whole state is loaded, mutated and written back by
// a single logical caller.
const (
	threadsDocKey  = "doc:threads"
	contactsDocKey = "doc:contacts"
)

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func getDoc(key string) ([]byte, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, nil
}

func setDoc(key string, v interface{}) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_doc_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// LoadThreads returns the persisted threads document. Missing or corrupt
// data degrades to an empty document; a load never fails on bad JSON.
func LoadThreads() (models.ThreadsDoc, error) {
	var doc models.ThreadsDoc
	raw, err := getDoc(threadsDocKey)
	if err != nil {
		return doc, err
	}
	if raw != nil {
		if jerr := json.Unmarshal(raw, &doc); jerr != nil {
			logger.Warn("threads_doc_corrupt", "error", jerr)
			doc = models.ThreadsDoc{}
		}
	}
	normalizeThreadsDoc(&doc)
	return doc, nil
}

// SaveThreads persists the threads document.
func SaveThreads(doc models.ThreadsDoc) error {
	return setDoc(threadsDocKey, doc)
}

// LoadContacts returns the persisted contacts document, coercing malformed
// data to an empty map.
func LoadContacts() (models.ContactsDoc, error) {
	var doc models.ContactsDoc
	raw, err := getDoc(contactsDocKey)
	if err != nil {
		return doc, err
	}
	if raw != nil {
		if jerr := json.Unmarshal(raw, &doc); jerr != nil {
			logger.Warn("contacts_doc_corrupt", "error", jerr)
			doc = models.ContactsDoc{}
		}
	}
	if doc.Contacts == nil {
		doc.Contacts = make(map[string]models.Contact)
	}
	return doc, nil
}

// SaveContacts persists the contacts document.
func SaveContacts(doc models.ContactsDoc) error {
	return setDoc(contactsDocKey, doc)
}

// Reset deletes both documents.
func Reset() error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete([]byte(threadsDocKey), pebble.Sync); err != nil {
		return err
	}
	return db.Delete([]byte(contactsDocKey), pebble.Sync)
}

// normalizeThreadsDoc repairs legacy or hand-edited state so downstream
// code can assume the invariants hold: participants unique with the player
// present, receipts well-formed, counters non-negative.
func normalizeThreadsDoc(doc *models.ThreadsDoc) {
	if doc.Meta.Presence == nil {
		doc.Meta.Presence = make(map[string]models.Presence)
	}
	for i := range doc.Threads {
		t := &doc.Threads[i]
		t.Participants = phone.WithSelf(t.Participants)
		if t.Title == "" {
			t.Title = phone.BuildThreadTitle(t.Participants)
		}
		if t.UnreadCount < 0 {
			t.UnreadCount = 0
		}
		for j := range t.Messages {
			m := &t.Messages[j]
			if m.From == models.SelfName && !m.System {
				r := phone.NormalizeReceipt(m.Receipt)
				m.Receipt = &r
			} else if m.Receipt != nil {
				// receipts exist only on player-authored messages
				m.Receipt = nil
			}
			m.From = strings.TrimSpace(m.From)
		}
	}
}
