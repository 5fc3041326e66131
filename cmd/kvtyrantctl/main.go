/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	spfcbr "github.com/spf13/cobra"
)

var (
	flagAddr    string
	flagTimeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *spfcbr.Command {
	root := &spfcbr.Command{
		Use:   "kvtyrantctl",
		Short: "one-shot binary-protocol admin client for kvtyrantd",
	}

	root.PersistentFlags().StringVar(&flagAddr, "addr", "127.0.0.1:1978", "kvtyrantd binary-dialect address")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Second, "dial timeout")

	root.AddCommand(
		newPutCmd(),
		newOutCmd(),
		newGetCmd(),
		newMGetCmd(),
		newListCmd(),
		newAddIntCmd(),
		newSyncCmd(),
		newVanishCmd(),
		newCopyCmd(),
		newSetMstCmd(),
		newRNumCmd(),
		newSizeCmd(),
		newStatCmd(),
		newMiscCmd(),
		newVersionCmd(),
	)

	return root
}

func newPutCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "put <key> <value>",
		Short: "store a record, overwriting any existing value",
		Args:  spfcbr.ExactArgs(2),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return ctlPut(flagAddr, []byte(args[0]), []byte(args[1]), flagTimeout)
		},
	}
}

func newOutCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "out <key>",
		Short: "remove a record",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return ctlOut(flagAddr, []byte(args[0]), flagTimeout)
		},
	}
}

func newGetCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "get <key>",
		Short: "retrieve a record",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			v, err := ctlGet(flagAddr, []byte(args[0]), flagTimeout)
			if err != nil {
				return err
			}
			fmt.Println(string(v))
			return nil
		},
	}
}

func newMGetCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "mget <key> [key...]",
		Short: "retrieve multiple records",
		Args:  spfcbr.MinimumNArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			keys := make([][]byte, len(args))
			for i, a := range args {
				keys[i] = []byte(a)
			}
			res, err := ctlMGet(flagAddr, keys, flagTimeout)
			if err != nil {
				return err
			}
			for k, v := range res {
				fmt.Printf("%s\t%s\n", k, v)
			}
			return nil
		},
	}
}

func newListCmd() *spfcbr.Command {
	var max int64
	cmd := &spfcbr.Command{
		Use:   "list [prefix]",
		Short: "list keys, optionally forward-matching a prefix",
		Args:  spfcbr.MaximumNArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			var prefix []byte
			if len(args) == 1 {
				prefix = []byte(args[0])
			}
			keys, err := ctlFwmKeys(flagAddr, prefix, uint32(max), flagTimeout)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Println(string(k))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&max, "max", -1, "maximum number of keys to return (-1 for unlimited)")
	return cmd
}

func newAddIntCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "addint <key> <delta>",
		Short: "add an integer to a record, creating it with the delta if absent",
		Args:  spfcbr.ExactArgs(2),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			delta, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("delta: %w", err)
			}
			sum, err := ctlAddInt(flagAddr, []byte(args[0]), int32(delta), flagTimeout)
			if err != nil {
				return err
			}
			fmt.Println(sum)
			return nil
		},
	}
}

func newSyncCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "sync",
		Short: "flush buffers to stable storage",
		Args:  spfcbr.NoArgs,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return ctlSync(flagAddr, flagTimeout)
		},
	}
}

func newVanishCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "vanish",
		Short: "remove every record from the database",
		Args:  spfcbr.NoArgs,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return ctlVanish(flagAddr, flagTimeout)
		},
	}
}

func newCopyCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "copy <path>",
		Short: "make a consistent hot copy of the database file",
		Args:  spfcbr.ExactArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			return ctlCopy(flagAddr, args[0], flagTimeout)
		},
	}
}

func newSetMstCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "setmst <host> <port>",
		Short: "set the replication master this server follows",
		Args:  spfcbr.ExactArgs(2),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			port, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			return ctlSetMst(flagAddr, args[0], uint32(port), flagTimeout)
		},
	}
}

func newRNumCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "rnum",
		Short: "print the number of records",
		Args:  spfcbr.NoArgs,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			n, err := ctlRNum(flagAddr, flagTimeout)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func newSizeCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "size",
		Short: "print the database file size in bytes",
		Args:  spfcbr.NoArgs,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			n, err := ctlSize(flagAddr, flagTimeout)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func newStatCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "stat",
		Short: "print server status as tab-separated fields",
		Args:  spfcbr.NoArgs,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			tsv, err := ctlStat(flagAddr, flagTimeout)
			if err != nil {
				return err
			}
			fmt.Print(tsv)
			return nil
		},
	}
}

func newMiscCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "misc <function> [arg...]",
		Short: "call a miscellaneous/extension function by name",
		Args:  spfcbr.MinimumNArgs(1),
		RunE: func(cmd *spfcbr.Command, args []string) error {
			margs := make([][]byte, len(args)-1)
			for i, a := range args[1:] {
				margs[i] = []byte(a)
			}
			res, err := ctlMisc(flagAddr, args[0], margs, flagTimeout)
			if err != nil {
				return err
			}
			out := make([]string, len(res))
			for i, r := range res {
				out[i] = string(r)
			}
			fmt.Println(strings.Join(out, "\t"))
			return nil
		},
	}
}

func newVersionCmd() *spfcbr.Command {
	return &spfcbr.Command{
		Use:   "version",
		Short: "print the version field of the server's stat block (the whole block if it has none)",
		Args:  spfcbr.NoArgs,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			tsv, err := ctlStat(flagAddr, flagTimeout)
			if err != nil {
				return err
			}
			for _, line := range strings.Split(strings.TrimRight(tsv, "\n"), "\n") {
				if strings.HasPrefix(line, "version\t") {
					fmt.Println(strings.TrimPrefix(line, "version\t"))
					return nil
				}
			}
			fmt.Print(tsv)
			return nil
		},
	}
}
