// Copyright 2024 the legend-daq2lh5 authors. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"github.com/ssailer/legend-daq2lh5/tools/orcadump"
)

func main() {
	orcadump.Main()
}
