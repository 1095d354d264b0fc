package weave

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// The header occupies the first line of every weave file, as a control
// line holding a JSON document describing the known deltas.
const (
	headerVersion = 1
	headerPrefix  = "\x01t"
)

// DeltaInfo describes a single delta recorded in the header.
type DeltaInfo struct {
	// Name is a tag naming this delta. Unique across all deltas.
	Name string `json:"name"`
	// Number is the serial that identifies this delta in the woven data.
	Number int `json:"number"`
	// Tags are arbitrary key/value pairs stored with the delta.
	Tags map[string]string `json:"tags"`
	// Time is when the delta was added.
	Time time.Time `json:"time"`
}

// Header is the delta table at the beginning of each weave file.
type Header struct {
	Version int         `json:"version"`
	Deltas  []DeltaInfo `json:"deltas"`
}

func decodeHeader(line string) (Header, error) {
	if !strings.HasPrefix(line, headerPrefix) {
		return Header{}, formatErrf(1, "missing weave header")
	}
	var h Header
	if err := json.Unmarshal([]byte(line[len(headerPrefix):]), &h); err != nil {
		return Header{}, formatErrf(1, "malformed weave header: %v", err)
	}
	return h, nil
}

func (h *Header) encode() (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode weave header: %w", err)
	}
	return headerPrefix + string(data), nil
}

// Add records a new delta built from the given tags and returns its
// serial. The "name" tag is required and becomes the delta's name;
// remaining tags are stored as-is. Serials are strictly max+1, so they
// are unique and increasing.
func (h *Header) Add(tags map[string]string) (int, error) {
	name, ok := tags["name"]
	if !ok {
		return 0, fmt.Errorf("weave: no \"name\" tag given")
	}

	next := 0
	for _, d := range h.Deltas {
		if d.Number > next {
			next = d.Number
		}
	}
	next++

	rest := make(map[string]string, len(tags)-1)
	for k, v := range tags {
		if k != "name" {
			rest[k] = v
		}
	}

	h.Deltas = append(h.Deltas, DeltaInfo{
		Name:   name,
		Number: next,
		Tags:   rest,
		Time:   time.Now().UTC(),
	})
	return next, nil
}

// Has reports whether a delta with the given serial exists.
func (h *Header) Has(serial int) bool {
	for _, d := range h.Deltas {
		if d.Number == serial {
			return true
		}
	}
	return false
}

// Latest returns the highest delta serial, or ErrNoDeltas.
func (h *Header) Latest() (int, error) {
	best := 0
	for _, d := range h.Deltas {
		if d.Number > best {
			best = d.Number
		}
	}
	if best == 0 {
		return 0, ErrNoDeltas
	}
	return best, nil
}

// Prior returns the second highest delta serial, or ErrNoDeltas if the
// weave holds fewer than two revisions.
func (h *Header) Prior() (int, error) {
	best, second := 0, 0
	for _, d := range h.Deltas {
		switch {
		case d.Number > best:
			second, best = best, d.Number
		case d.Number > second:
			second = d.Number
		}
	}
	if second == 0 {
		return 0, ErrNoDeltas
	}
	return second, nil
}

// ByName returns the serial of the delta with the given name.
func (h *Header) ByName(name string) (int, bool) {
	for _, d := range h.Deltas {
		if d.Name == name {
			return d.Number, true
		}
	}
	return 0, false
}
