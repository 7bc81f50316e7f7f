// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package header decodes the ORCA stream header: the first packet of every
// stream (data id 0), whose payload is an XML property list describing which
// decoder types are present and which data ids map to which type.
//
// The rest of the system consumes the header only through the two mappings
// (declared decoder names, id-to-name); the plist grammar is contained here.
package header

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/ssailer/legend-daq2lh5/packet"
)

// Header is the parsed stream header.
type Header struct {
	root Dict

	// decoderNames are the decoder-type names declared in dataDescription,
	// in stable (sorted) order.
	decoderNames []string

	// idToName maps the unshifted data id sub-field to its decoder name.
	idToName map[uint32]string
}

// Dict is a parsed plist dictionary. Values are int64, float64, bool,
// string, []interface{} or nested Dict.
type Dict map[string]interface{}

// Root returns the full parsed plist.
func (h *Header) Root() Dict { return h.root }

// DecoderNames returns the decoder-type names declared present in the
// stream, in stable order.
func (h *Header) DecoderNames() []string {
	return append([]string(nil), h.decoderNames...)
}

// IDToDecoderName returns the mapping from data id to decoder-type name.
//
// The header declares ids in their unshifted (raw sub-field) form. With
// shift set, keys are returned right-aligned as packet.DataID(w, true)
// produces them; otherwise they stay in the raw form matching
// packet.DataID(w, false).
func (h *Header) IDToDecoderName(shift bool) map[uint32]string {
	m := make(map[uint32]string, len(h.idToName))
	for id, name := range h.idToName {
		if shift {
			id >>= packet.DataIDShift
		}
		m[id] = name
	}
	return m
}

// JSON renders the parsed header as JSON, for archival in the header raw
// buffer.
func (h *Header) JSON() string {
	b, err := json.Marshal(h.root)
	if err != nil {
		// Dict only ever holds JSON-encodable values.
		return "{}"
	}
	return string(b)
}

// Int walks nested dictionaries along path and returns the integer leaf, if
// present. Used for optional readout configuration embedded in the header.
func (h *Header) Int(path ...string) (int64, bool) {
	cur := interface{}(h.root)
	for _, p := range path {
		d, ok := cur.(Dict)
		if !ok {
			return 0, false
		}
		cur, ok = d[p]
		if !ok {
			return 0, false
		}
	}
	v, ok := cur.(int64)
	return v, ok
}

// newHeader indexes a parsed plist root into a Header.
func newHeader(root Dict) (*Header, error) {
	h := &Header{
		root:     root,
		idToName: make(map[uint32]string),
	}

	dd, ok := root["dataDescription"].(Dict)
	if !ok {
		return nil, errors.New("header has no dataDescription dict")
	}

	seen := make(map[string]struct{})
	for _, objName := range sortedKeys(dd) {
		obj, ok := dd[objName].(Dict)
		if !ok {
			continue
		}
		for _, entryName := range sortedKeys(obj) {
			entry, ok := obj[entryName].(Dict)
			if !ok {
				continue
			}
			name, _ := entry["decoder"].(string)
			id, idOK := entry["dataId"].(int64)
			if name == "" || !idOK {
				return nil, errors.Errorf("dataDescription entry %s/%s lacks decoder or dataId", objName, entryName)
			}
			h.idToName[uint32(id)] = name
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				h.decoderNames = append(h.decoderNames, name)
			}
		}
	}
	sort.Strings(h.decoderNames)
	return h, nil
}

func sortedKeys(d Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
