// refctl is an administrative CLI over a refdb repository.
//
// Usage:
//
//	refctl -C <dir> update-ref <name> <new-hex> [<old-hex>]
//	refctl -C <dir> delete-ref <name> [<old-hex>]
//	refctl -C <dir> for-each-ref [<prefix>]
//	refctl -C <dir> reflog show <name>
//	refctl -C <dir> reflog expire <name> [-dry-run] [-rewrite]
//	refctl -C <dir> rename-ref <old> <new>
//	refctl -C <dir> symbolic-ref <name> <target>
//	refctl -C <dir> dwim <short-name>
//
// Exit codes: 0 success, 1 transient/data error, 128 quiet "log empty".
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dacapoday/refdb/refcodec"
	"github.com/dacapoday/refdb/reflogexpiry"
	"github.com/dacapoday/refdb/refs"
)

func main() {
	dir := flag.String("C", ".", "repository directory")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	repo, err := refs.Open(*dir)
	if err != nil {
		fatal(err)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "update-ref":
		err = runUpdateRef(repo, rest)
	case "delete-ref":
		err = runDeleteRef(repo, rest)
	case "for-each-ref":
		err = runForEachRef(repo, rest)
	case "reflog":
		err = runReflog(repo, rest)
	case "rename-ref":
		err = runRenameRef(repo, rest)
	case "symbolic-ref":
		err = runSymbolicRef(repo, rest)
	case "dwim":
		err = runDwim(repo, rest)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: refctl [-C dir] <update-ref|delete-ref|for-each-ref|reflog|rename-ref|symbolic-ref|dwim> ...")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "refctl: %v\n", err)
	os.Exit(1)
}

func parseID(hexStr string) refcodec.ObjectID {
	id, err := refcodec.ParseObjectID(hexStr)
	if err != nil {
		fatal(err)
	}
	return id
}

func runUpdateRef(repo *refs.Repository[*os.File], args []string) error {
	if len(args) < 2 {
		return errors.New("usage: update-ref <name> <new-hex> [<old-hex>]")
	}
	name, new := args[0], parseID(args[1])
	var old refcodec.ObjectID
	haveOld := false
	if len(args) > 2 {
		old = parseID(args[2])
		haveOld = true
	}
	return repo.UpdateRef(name, old, new, haveOld, "refctl update-ref")
}

func runDeleteRef(repo *refs.Repository[*os.File], args []string) error {
	if len(args) < 1 {
		return errors.New("usage: delete-ref <name> [<old-hex>]")
	}
	var old refcodec.ObjectID
	haveOld := false
	if len(args) > 1 {
		old = parseID(args[1])
		haveOld = true
	}
	return repo.DeleteRef(args[0], old, haveOld, "refctl delete-ref")
}

func runForEachRef(repo *refs.Repository[*os.File], args []string) error {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	n := 0
	err := repo.ForEachRef(prefix, func(name string, id refcodec.ObjectID) error {
		n++
		fmt.Printf("%s %s\n", id, name)
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		os.Exit(128)
	}
	return nil
}

func runReflog(repo *refs.Repository[*os.File], args []string) error {
	if len(args) < 2 {
		return errors.New("usage: reflog <show|expire> <name> [flags]")
	}
	sub, name := args[0], args[1]

	switch sub {
	case "show":
		n := 0
		err := repo.ReflogShow(name, func(e refcodec.Entry) error {
			n++
			fmt.Printf("%s..%s %s %d %s\t%s\n", e.Old, e.New, e.Committer, e.Timestamp, tzString(e.TZOffset), e.Message)
			return nil
		})
		if err != nil {
			return err
		}
		if n == 0 {
			os.Exit(128)
		}
		return nil
	case "expire":
		fs := flag.NewFlagSet("reflog expire", flag.ExitOnError)
		dryRun := fs.Bool("dry-run", false, "report without mutating the store")
		rewrite := fs.Bool("rewrite", false, "rewrite the old field of kept entries adjacent to a pruned run")
		verbose := fs.Bool("verbose", false, "print each pruned entry")
		fs.Parse(args[2:])

		var flags reflogexpiry.Flags
		if *dryRun {
			flags |= reflogexpiry.DryRun
		}
		if *rewrite {
			flags |= reflogexpiry.Rewrite
		}
		if *verbose {
			flags |= reflogexpiry.Verbose
		}

		result, err := repo.ReflogExpire(name, flags, &expireAllPolicy{})
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d kept %d\n", result.Pruned, result.Kept)
		return nil
	default:
		return fmt.Errorf("unknown reflog subcommand %q", sub)
	}
}

func runRenameRef(repo *refs.Repository[*os.File], args []string) error {
	if len(args) < 2 {
		return errors.New("usage: rename-ref <old> <new>")
	}
	return repo.RenameRef(args[0], args[1])
}

func runSymbolicRef(repo *refs.Repository[*os.File], args []string) error {
	if len(args) < 2 {
		return errors.New("usage: symbolic-ref <name> <target>")
	}
	return repo.CreateSymref(args[0], args[1], "refctl symbolic-ref")
}

func runDwim(repo *refs.Repository[*os.File], args []string) error {
	if len(args) < 1 {
		return errors.New("usage: dwim <short-name>")
	}
	full, id, ambiguous, err := repo.DwimRef(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", id, full)
	if ambiguous {
		fmt.Fprintf(os.Stderr, "warning: %q is ambiguous\n", args[0])
	}
	return nil
}

func tzString(offsetMinutes int) string {
	sign := byte('+')
	if offsetMinutes < 0 {
		sign = '-'
		offsetMinutes = -offsetMinutes
	}
	return fmt.Sprintf("%c%02d%02d", sign, offsetMinutes/60, offsetMinutes%60)
}

// expireAllPolicy is the built-in "prune everything" policy used when no
// finer-grained selection has been requested.
type expireAllPolicy struct{}

func (expireAllPolicy) Prepare(string, refcodec.ObjectID) {}
func (expireAllPolicy) Cleanup()                          {}
func (expireAllPolicy) ShouldPrune(_, _ refcodec.ObjectID, _ refcodec.Committer, _ int64, _ int, _ string) bool {
	return true
}
