package firehose

import "encoding/json"

const (
	KindCommit   = "commit"
	KindIdentity = "identity"
	KindAccount  = "account"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Event is one jetstream message. Only commit events carry a Commit section;
// identity and account events are observed for cursor progress and skipped.
type Event struct {
	DID    string  `json:"did"`
	TimeUS int64   `json:"time_us"`
	Kind   string  `json:"kind"`
	Commit *Commit `json:"commit,omitempty"`
}

// Commit describes one record mutation. Record is left raw; the ingestor
// registered for the collection owns decoding. Jetstream does not send the
// record URI, it is reconstructed from did, collection, and rkey.
type Commit struct {
	Rev        string          `json:"rev"`
	Operation  string          `json:"operation"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Record     json.RawMessage `json:"record,omitempty"`
	CID        string          `json:"cid,omitempty"`
}
