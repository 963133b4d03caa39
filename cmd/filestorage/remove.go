package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evteevakb/filestorage"
	"github.com/evteevakb/filestorage/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <filepath|id> ...",
	Short: "Remove a user's files",
	Long: `Remove files from a user's storage. The object is deleted from
storage first, then its record.

Arguments that parse as integers are file ids, everything else is a
storage path such as bob/docs/report.txt.

Examples:
  # Remove by path
  filestorage remove --user bob bob/report.txt

  # Remove by id
  filestorage remove --user bob 12 13

  # Remove everything under a directory
  filestorage remove --user bob --prefix bob/images/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var (
	removeUser   string
	removePrefix bool
	removeQuiet  bool
)

func init() {
	removeCmd.Flags().StringVarP(&removeUser, "user", "u", "", "owner of the files")
	removeCmd.Flags().BoolVarP(&removePrefix, "prefix", "p", false, "treat arguments as path prefixes and remove all matching files")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-file output")
	_ = removeCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	a, err := openApp(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var selectors []filestorage.Selector
	if removePrefix {
		selectors, err = selectByPrefix(ctx, a.files, removeUser, args)
		if err != nil {
			return err
		}
	} else {
		for _, arg := range args {
			selectors = append(selectors, parseSelector(arg))
		}
	}

	removed := 0
	notFound := 0

	for _, sel := range selectors {
		record, removeErr := a.files.Remove(ctx, removeUser, sel)
		if errors.Is(removeErr, filestorage.ErrNotFound) {
			notFound++
			if !removeQuiet {
				slog.Warn("not found", "selector", describeSelector(sel))
			}
			continue
		}
		if removeErr != nil {
			return fmt.Errorf("remove %s: %w", describeSelector(sel), removeErr)
		}

		removed++
		if !removeQuiet {
			slog.Info("removed", "id", record.ID, "filepath", record.Filepath)
		}
	}

	slog.Info("remove complete", "removed", removed, "not_found", notFound)
	return nil
}

// parseSelector reads a positive integer as a file id and anything else as
// a storage path.
func parseSelector(arg string) filestorage.Selector {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
		return filestorage.Selector{ID: id}
	}
	return filestorage.Selector{Filepath: arg}
}

func describeSelector(sel filestorage.Selector) string {
	if sel.Filepath != "" {
		return sel.Filepath
	}
	return "#" + strconv.FormatInt(sel.ID, 10)
}

type fileLister interface {
	List(ctx context.Context, username string) ([]filestorage.FileRecord, error)
}

// selectByPrefix selects the user's files whose path starts with any prefix.
func selectByPrefix(ctx context.Context, files fileLister, username string, prefixes []string) ([]filestorage.Selector, error) {
	records, err := files.List(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	var selectors []filestorage.Selector
	for _, r := range records {
		for _, prefix := range prefixes {
			if strings.HasPrefix(r.Filepath, prefix) {
				selectors = append(selectors, filestorage.Selector{ID: r.ID})
				break
			}
		}
	}

	return selectors, nil
}
