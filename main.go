package main

import (
	"fmt"
	"os"

	"fjacquet/card-expenses/cmd/batch"
	"fjacquet/card-expenses/cmd/classify"
	"fjacquet/card-expenses/cmd/extract"
	"fjacquet/card-expenses/cmd/root"
	"fjacquet/card-expenses/cmd/statement"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(extract.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(statement.Cmd)
	root.Cmd.AddCommand(classify.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
