// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package orca

import (
	"encoding/binary"

	"github.com/ssailer/legend-daq2lh5/support/dataio"
	"github.com/ssailer/legend-daq2lh5/support/fmtutil"
	"github.com/ssailer/legend-daq2lh5/support/logging"
)

// IsOrcaStream reports whether the named file looks like an ORCA packet
// stream. It is used for input-format auto-detection.
//
// The probe reads the first 12 bytes and accepts only if (a) the top 14 bits
// of the first word are zero (a long packet with data id 0, the header), (b)
// the declared plist byte length fits the header packet's word count with a
// padding remainder in [0,3] bytes, and (c) bytes 8-11 are the plist tag
// "<?xm". The probe mutates no external state and closes what it opens.
func IsOrcaStream(path string, logger logging.L) bool {
	log := logging.Must(logger)

	src, err := openSource(path)
	if err != nil {
		log.Debugf("probe could not open %s: %s", path, err)
		return false
	}
	defer func() {
		_ = src.Close()
	}()

	var first [12]byte
	n, err := dataio.ReadFull(src, first[:])
	if err != nil || n != 12 {
		log.Debugf("first 12B read returned %dB: not orca", n)
		return false
	}
	log.Debugf("probe window:\n%s", fmtutil.Hex(first[:]))

	w0 := binary.LittleEndian.Uint32(first[0:])
	w1 := binary.LittleEndian.Uint32(first[4:])

	if w0&0xFFFC0000 != 0 {
		log.Debugf("first fourteen bits non-zero (0x%x): not orca", w0&0xFFFC0000)
		return false
	}

	pad := int64(w0)*4 - 8 - int64(w1)
	if pad < 0 || pad > 3 {
		log.Debugf("header length %dB does not fit within header packet length %dB: not orca", w1, int64(w0)*4-8)
		return false
	}

	if string(first[8:12]) != "<?xm" {
		log.Debugf("bytes 8-11 = %q != \"<?xm\": not orca", first[8:12])
		return false
	}
	return true
}
