// Command rollcall is the device side of attendance taking: it submits
// attendance, keeps it on the device while the server is unreachable and
// replays it once the server is back.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func main() {
	cli := &commandLine{out: os.Stdout}
	err := cli.run(os.Args[1:])
	cli.close()
	if err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
		}
		os.Exit(1)
	}
}
