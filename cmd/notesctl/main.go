// Command notesctl manages users and notes from the command line.
//
//	notesctl user create alice --password 's3cret-pass'
//	notesctl notes add --user alice --title "Groceries" --text "milk"
//	notesctl notes list --user alice
//	notesctl notes delete --user alice groceries
//	notesctl notes count
package main

import "os"

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}
