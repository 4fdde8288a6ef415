package main

import (
	"context"
	"fmt"
	"os"

	"github.com/doeshing/retrace/internal/infrastructure/cli"
)

func main() {
	ctx := context.Background()
	root := cli.NewRootCmd(ctx, cli.Options{Verbose: cli.IsVerboseEnv()})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
