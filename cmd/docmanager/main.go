package main

import "github.com/nimburion/docmanager/pkg/cli"

func main() {
	cli.Execute(cli.NewRootCommand(cli.Options{
		Name:        "docmanager",
		Description: "Query and aggregate documents in configured collections",
		EnvPrefix:   "DOCMANAGER",
	}))
}
