// Command hotspotctl is the operator command line for hotspotkeeper.
package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/hotspotkeeper/internal/ctl"
)

func main() {
	os.Exit(ctl.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
