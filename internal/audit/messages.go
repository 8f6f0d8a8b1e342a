package audit

import (
	"encoding/json"
	"time"

	"banker/internal/money"
)

// Entry is a single durable audit record of a mutation accepted by the
// master. It is a one-way trail, not a replayable event log: recovery
// after a crash comes from the persistence snapshot, never from
// replaying audit entries.
type Entry struct {
	Key       string             `json:"key"`
	Op        string             `json:"op"`
	Currency  string             `json:"currency,omitempty"`
	Before    money.CurrencyPool `json:"before,omitempty"`
	After     money.CurrencyPool `json:"after,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func (e *Entry) toJSON() ([]byte, error) {
	return json.Marshal(e)
}

func entryFromJSON(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
