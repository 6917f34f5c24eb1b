package sim

import (
	"phonesim/pkg/models"
	"phonesim/pkg/store"
)

// Repository is the persistence boundary. Each operation loads the full
// documents, mutates in-memory copies and writes them back; the engine
// assumes one logical writer.
type Repository interface {
	LoadThreads() (models.ThreadsDoc, error)
	SaveThreads(models.ThreadsDoc) error
	LoadContacts() (models.ContactsDoc, error)
	SaveContacts(models.ContactsDoc) error
	Reset() error
}

// StoreRepo backs the Repository with the pebble store.
type StoreRepo struct{}

func (StoreRepo) LoadThreads() (models.ThreadsDoc, error)  { return store.LoadThreads() }
func (StoreRepo) SaveThreads(d models.ThreadsDoc) error    { return store.SaveThreads(d) }
func (StoreRepo) LoadContacts() (models.ContactsDoc, error) { return store.LoadContacts() }
func (StoreRepo) SaveContacts(d models.ContactsDoc) error  { return store.SaveContacts(d) }
func (StoreRepo) Reset() error                             { return store.Reset() }
