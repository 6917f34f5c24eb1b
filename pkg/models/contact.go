package models

// Contact is one entry of the contacts document, keyed by lowercase name.
type Contact struct {
	HasNumber bool `json:"has_number"`
}

// ContactsDoc is the persisted contacts document. Keys are lowercase
// character names.
type ContactsDoc struct {
	Contacts map[string]Contact `json:"contacts"`
	// Seeded records that the starter number grants were applied once.
	// Explicit revocations must survive later loads.
	Seeded bool `json:"seeded,omitempty"`
}

// ContactView is the API projection of a contact.
type ContactView struct {
	Name      string `json:"name"`
	HasNumber bool   `json:"has_number"`
}
