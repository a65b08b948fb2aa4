package main

import "github.com/consensys/dbc/cmd/dbc2csv/cmd"

func main() {
	cmd.Execute()
}
