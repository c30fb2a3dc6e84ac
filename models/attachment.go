package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Attachment is a stored PDF referenced by a task. It has no identity of its
// own; clients address it by its position in Task.Documents.
type Attachment struct {
	StorageKey       string `json:"storageKey"`
	OriginalFilename string `json:"originalFilename"`
	StoragePath      string `json:"storagePath"`
	MimeType         string `json:"mimeType"`
	Size             int64  `json:"size"`
}

// Attachments is the ordered attachment list persisted as a JSON column
type Attachments []Attachment

// Value implements the driver.Valuer interface
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Attachment(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (a *Attachments) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = Attachments{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion to []byte or string failed")
	}

	if len(raw) == 0 {
		*a = Attachments{}
		return nil
	}

	var list []Attachment
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}
	if list == nil {
		list = []Attachment{}
	}
	*a = list
	return nil
}

// MarshalJSON renders a nil list as [] so clients always get an array
func (a Attachments) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Attachment(a))
}
