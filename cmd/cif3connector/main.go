// Command cif3connector translates contract automata into CIF3 plants.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stateforward/go-contract/internal/cli"
)

func main() {
	app := cli.New()

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
