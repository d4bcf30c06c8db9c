package cmd

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// printResult writes a debug dump of a downloaded item.
func printResult(out io.Writer, what string, item interface{}) {
	fmt.Fprintf(out, "Successfully downloaded %s: %s", what, dumper.Sdump(item))
}
