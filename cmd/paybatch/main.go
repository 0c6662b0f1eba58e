package main

import (
	"fmt"
	"os"

	"github.com/ncobase/paybatch/cmd/commands"

	_ "github.com/ncobase/paybatch/data/mysql"
	_ "github.com/ncobase/paybatch/data/postgres"
	_ "github.com/ncobase/paybatch/data/sqlite"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
