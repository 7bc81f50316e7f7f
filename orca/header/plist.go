// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package header

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parsePlist parses an XML property list into a Dict.
//
// Only the subset ORCA emits is supported: dict, key, string, integer, real,
// true, false, array and data (kept as its base64 text).
func parsePlist(data []byte) (Dict, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("plist has no root dict")
			}
			return nil, errors.Wrap(err, "reading plist")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "plist" {
			continue
		}
		v, err := parseValue(dec, start)
		if err != nil {
			return nil, err
		}
		d, ok := v.(Dict)
		if !ok {
			return nil, errors.Errorf("plist root is %T, not a dict", v)
		}
		return d, nil
	}
}

func parseValue(dec *xml.Decoder, start xml.StartElement) (interface{}, error) {
	switch start.Name.Local {
	case "dict":
		return parseDict(dec)
	case "array":
		return parseArray(dec)
	case "string", "data":
		return parseText(dec, start)
	case "integer":
		text, err := parseText(dec, start)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad integer %q", text)
		}
		return v, nil
	case "real":
		text, err := parseText(dec, start)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad real %q", text)
		}
		return v, nil
	case "true":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return true, nil
	case "false":
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return false, nil
	default:
		return nil, errors.Errorf("unsupported plist element <%s>", start.Name.Local)
	}
}

func parseDict(dec *xml.Decoder) (Dict, error) {
	d := Dict{}
	var key string
	haveKey := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "reading dict")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "key" {
				key, err = parseText(dec, t)
				if err != nil {
					return nil, err
				}
				haveKey = true
				continue
			}
			if !haveKey {
				return nil, errors.Errorf("dict value <%s> without a key", t.Name.Local)
			}
			v, err := parseValue(dec, t)
			if err != nil {
				return nil, err
			}
			d[key] = v
			haveKey = false
		case xml.EndElement:
			return d, nil
		}
	}
}

func parseArray(dec *xml.Decoder) ([]interface{}, error) {
	var arr []interface{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "reading array")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := parseValue(dec, t)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		case xml.EndElement:
			return arr, nil
		}
	}
}

// parseText consumes the element started by start and returns its character
// data.
func parseText(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", errors.Wrapf(err, "reading <%s>", start.Name.Local)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", errors.Errorf("unexpected <%s> inside <%s>", t.Name.Local, start.Name.Local)
		}
	}
}
