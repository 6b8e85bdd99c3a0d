// msalign - Cross-sample peak alignment tool
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ChrisMcGann/msalign/cmd/msalign/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
