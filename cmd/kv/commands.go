package kv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/dStore/cmd/util"
	"github.com/ValentinKolb/dStore/lib/store"
	"github.com/ValentinKolb/dStore/lib/store/estore"
	"github.com/spf13/cobra"
)

type keyResult struct {
	Store string `json:"store" yaml:"store"`
	Key   string `json:"key" yaml:"key"`
	Found bool   `json:"found" yaml:"found"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

var (
	getCmd = &cobra.Command{
		Use:   "get [store] [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, key := args[0], args[1]
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, name)
				if err != nil {
					return err
				}
				value, ok, err := s.Get(key)
				if err != nil {
					return err
				}
				return util.Print(cmd,
					fmt.Sprintf("key=%s, found=%t, value=%s", key, ok, value),
					keyResult{Store: name, Key: key, Found: ok, Value: value})
			})
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [store] [key] [value]",
		Short: "Sets the value for a key, the store is created if it does not exist",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, key, value := args[0], args[1], args[2]
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := f.GetInstance(name)
				if err != nil {
					return err
				}
				prev, replaced, err := s.Put(key, value)
				if err != nil {
					return err
				}
				return util.Print(cmd, "set successfully",
					keyResult{Store: name, Key: key, Found: replaced, Value: prev})
			})
		},
	}
	deleteCmd = &cobra.Command{
		Use:     "delete [store] [key]",
		Aliases: []string{"del"},
		Short:   "Deletes a key value pair",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, key := args[0], args[1]
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, name)
				if err != nil {
					return err
				}
				prev, ok, err := s.Remove(key)
				if err != nil {
					return err
				}
				text := "delete successfully"
				if !ok {
					text = fmt.Sprintf("key %s not found", key)
				}
				return util.Print(cmd, text, keyResult{Store: name, Key: key, Found: ok, Value: prev})
			})
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [store] [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, key := args[0], args[1]
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, name)
				if err != nil {
					return err
				}
				found, err := s.ContainsKey(key)
				if err != nil {
					return err
				}
				return util.Print(cmd, fmt.Sprintf("key=%s, found=%t", key, found),
					keyResult{Store: name, Key: key, Found: found})
			})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [store]",
		Short: "Lists all key value pairs of a store, sorted by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, args[0])
				if err != nil {
					return err
				}
				entries, err := s.Entries()
				if err != nil {
					return err
				}
				sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

				var sb strings.Builder
				for _, e := range entries {
					sb.WriteString(fmt.Sprintf("%s=%s\n", e.Key, e.Value))
				}
				if entries == nil {
					entries = []store.Entry[string, string]{}
				}
				return util.Print(cmd, strings.TrimSuffix(sb.String(), "\n"), entries)
			})
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size [store]",
		Short: "Prints the number of entries of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, args[0])
				if err != nil {
					return err
				}
				n, err := s.Len()
				if err != nil {
					return err
				}
				return util.Print(cmd, fmt.Sprint(n), map[string]int{"size": n})
			})
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [store]",
		Short: "Removes all entries of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, args[0])
				if err != nil {
					return err
				}
				if err := s.Clear(); err != nil {
					return err
				}
				return util.Print(cmd, "clear successfully", map[string]bool{"cleared": true})
			})
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [store]",
		Short: "Checks if a store exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				ok, err := f.Exists(args[0])
				if err != nil {
					return err
				}
				return util.Print(cmd, fmt.Sprintf("store=%s, exists=%t", args[0], ok),
					map[string]any{"store": args[0], "exists": ok})
			})
		},
	}
	storesCmd = &cobra.Command{
		Use:   "stores",
		Short: "Lists the names of all stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				names, err := f.Names()
				if err != nil {
					return err
				}
				return util.Print(cmd, strings.Join(names, "\n"), names)
			})
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [store]",
		Short: "Prints engine statistics of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return util.WithFactory(func(f *estore.Factory[string, string]) error {
				s, err := openExisting(f, args[0])
				if err != nil {
					return err
				}
				info, err := s.Info()
				if err != nil {
					return err
				}
				text := fmt.Sprintf("store=%s, engine=%s, entries=%d, size=%d bytes",
					args[0], info.DbType, info.Entries, info.SizeBytes)
				return util.Print(cmd, text, info)
			})
		},
	}
)
