package kv

import (
	"fmt"

	"github.com/ValentinKolb/dStore/lib/store"
	"github.com/ValentinKolb/dStore/lib/store/estore"
	"github.com/spf13/cobra"
)

// Commands are the store commands, they are added to the root command
var Commands = []*cobra.Command{
	getCmd,
	setCmd,
	deleteCmd,
	hasCmd,
	listCmd,
	sizeCmd,
	clearCmd,
	existsCmd,
	storesCmd,
	infoCmd,
	metricsCmd,
}

// openExisting opens a store that must already exist, so that read commands
// do not create empty stores as a side effect
func openExisting(f *estore.Factory[string, string], name string) (store.Store[string, string], error) {
	ok, err := f.Exists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("store %q does not exist in %s", name, f.Path())
	}
	return f.GetInstance(name)
}
