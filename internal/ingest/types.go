// Package ingest defines the postings mutation events carried from the HTTP
// API through Kafka to the index.
package ingest

import (
	"strconv"
	"time"

	"github.com/segmentio/ksuid"
)

// Op names a postings mutation.
type Op string

const (
	OpAdd       Op = "add"
	OpRemove    Op = "remove"
	OpRemoveDoc Op = "remove_doc"
	OpMerge     Op = "merge"
)

// PostingEvent is both the JSON body of POST /api/v1/postings and the Kafka
// message payload. For OpMerge, FromTerm's postings are folded into Term and
// DocID is ignored. For OpRemoveDoc, Term is ignored.
type PostingEvent struct {
	Op       Op        `json:"op"`
	Term     string    `json:"term,omitempty"`
	DocID    int       `json:"doc_id"`
	FromTerm string    `json:"from_term,omitempty"`
	EventID  string    `json:"event_id,omitempty"`
	At       time.Time `json:"at,omitzero"`
}

// AcceptResponse is returned once an event has been handed to the sink.
type AcceptResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Stamp assigns an event id and timestamp to events that lack them.
func (e *PostingEvent) Stamp(now time.Time) {
	if e.EventID == "" {
		e.EventID = ksuid.New().String()
	}
	if e.At.IsZero() {
		e.At = now.UTC()
	}
}

// PartitionKey picks the Kafka message key. add, remove and merge are keyed
// by Term, so events naming the same Term are applied in publish order.
// remove_doc is keyed by document and a merge's FromTerm travels under Term's
// key, so neither is ordered against other events on the terms they touch.
func (e *PostingEvent) PartitionKey() string {
	if e.Op == OpRemoveDoc {
		return "doc:" + strconv.Itoa(e.DocID)
	}
	return e.Term
}
