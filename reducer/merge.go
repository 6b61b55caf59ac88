package reducer

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrMixedShapes = errors.New("partials mix keyed aggregates and lists")

type shape int

const (
	shapeNone shape = iota
	shapeList
	shapeKeyed
)

func shapeOf(raw json.RawMessage) shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return shapeNone
	}
	switch trimmed[0] {
	case '{':
		return shapeKeyed
	case '[':
		return shapeList
	}
	return shapeNone
}

// Merge combines partial results by shape. Keyed aggregates are summed per
// key, lists are concatenated in the order given. Null or empty partials
// contribute nothing. The bool reports an empty merged result.
func Merge(partials []json.RawMessage) (json.RawMessage, bool, error) {
	kind := shapeNone
	for _, p := range partials {
		s := shapeOf(p)
		if s == shapeNone {
			continue
		}
		if kind != shapeNone && s != kind {
			return nil, false, ErrMixedShapes
		}
		kind = s
	}

	switch kind {
	case shapeKeyed:
		return sumKeyed(partials)
	case shapeList:
		return concatLists(partials)
	}
	return json.RawMessage("[]"), true, nil
}

func sumKeyed(partials []json.RawMessage) (json.RawMessage, bool, error) {
	sums := map[string]float64{}
	for _, p := range partials {
		if shapeOf(p) != shapeKeyed {
			continue
		}
		var counts map[string]float64
		if err := json.Unmarshal(p, &counts); err != nil {
			return nil, false, errors.Wrap(err, "decode keyed partial")
		}
		for k, v := range counts {
			sums[k] += v
		}
	}
	out, err := json.Marshal(sums)
	if err != nil {
		return nil, false, errors.Wrap(err, "encode merged aggregates")
	}
	return out, len(sums) == 0, nil
}

func concatLists(partials []json.RawMessage) (json.RawMessage, bool, error) {
	items := []json.RawMessage{}
	for _, p := range partials {
		if shapeOf(p) != shapeList {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(p, &list); err != nil {
			return nil, false, errors.Wrap(err, "decode list partial")
		}
		items = append(items, list...)
	}
	out, err := json.Marshal(items)
	if err != nil {
		return nil, false, errors.Wrap(err, "encode merged list")
	}
	return out, len(items) == 0, nil
}
