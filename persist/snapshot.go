package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/krisalay/storekit/types"
)

// ErrCorruptSnapshot is returned when a snapshot file cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// record is one element of the on-disk JSON array.
type record struct {
	Key            string    `json:"key"`
	Value          string    `json:"value"`
	ExpirationDate time.Time `json:"expirationDate"`
}

// EncodeSnapshot renders entries as the persisted JSON array, ordered by key.
// Expiration dates are written as RFC 3339 timestamps.
func EncodeSnapshot(entries []types.Entry[string, string]) ([]byte, error) {
	recs := make([]record, 0, len(entries))
	for _, ent := range entries {
		recs = append(recs, record{
			Key:            ent.Key,
			Value:          ent.Value,
			ExpirationDate: ent.ExpiresAt.UTC(),
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })

	b, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

/*
DecodeSnapshot parses a persisted JSON array.

expirationDate may be an ISO-8601 string or a number of seconds since the
Unix epoch. Any malformed element fails the whole snapshot; the caller then
starts from an empty cache. Expired entries are returned as well, filtering
is the loader's business.
*/
func DecodeSnapshot(data []byte) ([]types.Entry[string, string], error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrCorruptSnapshot)
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected an array, got %s", ErrCorruptSnapshot, doc.Type)
	}

	var (
		out []types.Entry[string, string]
		err error
	)
	doc.ForEach(func(_, el gjson.Result) bool {
		var ent types.Entry[string, string]
		ent, err = decodeRecord(el)
		if err != nil {
			err = fmt.Errorf("%w: element %d: %w", ErrCorruptSnapshot, len(out), err)
			return false
		}
		out = append(out, ent)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRecord(el gjson.Result) (types.Entry[string, string], error) {
	var ent types.Entry[string, string]

	if !el.IsObject() {
		return ent, errors.New("not an object")
	}

	key := el.Get("key")
	if key.Type != gjson.String {
		return ent, errors.New("missing key")
	}
	value := el.Get("value")
	if value.Type != gjson.String {
		return ent, errors.New("missing value")
	}
	expires, err := decodeDate(el.Get("expirationDate"))
	if err != nil {
		return ent, err
	}

	ent.Key = key.String()
	ent.Value = value.String()
	ent.ExpiresAt = expires
	return ent, nil
}

func decodeDate(r gjson.Result) (time.Time, error) {
	switch r.Type {
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, r.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("bad expirationDate: %w", err)
		}
		return t, nil
	case gjson.Number:
		sec, frac := math.Modf(r.Float())
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), nil
	default:
		return time.Time{}, errors.New("missing expirationDate")
	}
}
