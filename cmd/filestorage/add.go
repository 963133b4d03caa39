package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evteevakb/filestorage"
	"github.com/evteevakb/filestorage/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Import local files for a user",
	Long: `Import local files into a user's storage.

Each file goes through the same upload path as the HTTP API: the storage
path is derived from the user, the --dest directory and the file name, a
record is inserted and the content is written to object storage.

Examples:
  # Add a single file as bob/report.pdf
  filestorage add --user bob report.pdf

  # Add under a directory, as bob/images/photo.jpg
  filestorage add --user bob --dest images/ photo.jpg

  # Add a directory recursively
  filestorage add --user bob -r --dest assets/ ./assets

  # Skip files whose path is already taken
  filestorage add --user bob --skip-existing report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addUser         string
	addDest         string
	addRecursive    bool
	addSkipExisting bool
	addQuiet        bool
)

func init() {
	addCmd.Flags().StringVarP(&addUser, "user", "u", "", "owner of the imported files")
	addCmd.Flags().StringVarP(&addDest, "dest", "d", "", "destination directory inside the user's storage")
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().BoolVarP(&addSkipExisting, "skip-existing", "n", false, "skip files whose path is already taken instead of failing")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	_ = addCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(addCmd)
}

// fileEntry is a local file and the client path it is uploaded under.
type fileEntry struct {
	sourcePath string
	// destDir is empty or ends with "/".
	destDir  string
	filename string
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var files []fileEntry
	for _, arg := range args {
		entries, collectErr := collectFiles(arg, addRecursive, addDest)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, entries...)
	}

	if len(files) == 0 {
		slog.Info("no files to add")
		return nil
	}

	a, err := openApp(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err = a.requireUser(ctx, addUser); err != nil {
		return err
	}

	added := 0
	skipped := 0

	for _, entry := range files {
		f, openErr := os.Open(entry.sourcePath)
		if openErr != nil {
			return fmt.Errorf("open %s: %w", entry.sourcePath, openErr)
		}

		record, uploadErr := a.files.Upload(ctx, addUser, entry.destDir, entry.filename, f)
		_ = f.Close()

		if errors.Is(uploadErr, filestorage.ErrPathConflict) && addSkipExisting {
			skipped++
			if !addQuiet {
				slog.Info("skipped (exists)", "source", entry.sourcePath)
			}
			continue
		}
		if uploadErr != nil {
			return fmt.Errorf("add %s: %w", entry.sourcePath, uploadErr)
		}

		added++
		if !addQuiet {
			slog.Info("added", "id", record.ID, "filepath", record.Filepath)
		}
	}

	slog.Info("add complete", "added", added, "skipped", skipped)
	return nil
}

// collectFiles gathers files from a local path, optionally recursively.
// Subdirectories below a recursive root are kept as directories of the
// destination.
func collectFiles(root string, recursive bool, destDir string) ([]fileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	destDir = strings.TrimPrefix(destDir, "/")
	if destDir != "" && !strings.HasSuffix(destDir, "/") {
		destDir += "/"
	}

	if !info.IsDir() {
		return []fileEntry{{sourcePath: root, destDir: destDir, filename: filepath.Base(root)}}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to add recursively)", root)
	}

	var entries []fileEntry
	walkErr := filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(root, walkPath)
		if relErr != nil {
			return relErr
		}

		dir := path.Dir(filepath.ToSlash(relPath))
		entryDir := destDir
		if dir != "." {
			entryDir += dir + "/"
		}

		entries = append(entries, fileEntry{
			sourcePath: walkPath,
			destDir:    entryDir,
			filename:   d.Name(),
		})
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}
