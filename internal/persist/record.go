package persist

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Queue record versions. Bumped when the persisted shape changes.
const (
	QueueRecordVersion = 1
	EntryRecordVersion = 1
)

// Entry kind discriminators. The decode registry is closed over these.
const (
	KindURL    = "url"
	KindStream = "stream"
)

// QueueRecord is the versioned, order-preserving snapshot of a playlist.
type QueueRecord struct {
	Version int           `json:"version"`
	Entries []EntryRecord `json:"entries"`
}

// EntryRecord is one persisted entry, tagged with a kind discriminator for
// polymorphic reconstruction. Only serializable fields appear here; runtime
// handles are re-injected at decode time.
type EntryRecord struct {
	Kind    string `json:"kind"`
	Version int    `json:"version"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	// Duration in seconds. nil means unknown; zero is valid data.
	Duration         *float64   `json:"duration,omitempty"`
	Downloaded       bool       `json:"downloaded,omitempty"`
	ExpectedFilename string     `json:"expected_filename,omitempty"`
	Filename         string     `json:"filename,omitempty"`
	Destination      string     `json:"destination,omitempty"`
	Filter           string     `json:"filter,omitempty"`
	Meta             MetaRecord `json:"meta"`
}

// MetaRecord persists the caller-supplied identity metadata.
type MetaRecord struct {
	Author  FlexID `json:"author,omitempty"`
	Channel FlexID `json:"channel,omitempty"`
}

// FlexID is an integer identifier that also accepts string-typed values on
// decode, tolerating records persisted before identities were numeric.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = FlexID(v)
		return nil
	}

	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexID(v)
	return nil
}
