package main

import (
	"context"
	"fmt"
	"os"

	"github.com/congo-pay/ghostchain/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ghostchain: %v\n", err)
		os.Exit(1)
	}
}
