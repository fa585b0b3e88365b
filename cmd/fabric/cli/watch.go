package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fabricworks/fabric"
	"github.com/fabricworks/fabric/engine"
	"github.com/fabricworks/fabric/slogger"
	"github.com/fabricworks/fabric/store"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchDebounceMs int
	watchIgnore     []string
)

// workflowWatcher revalidates workflow files whenever they change on
// disk, so editors get immediate feedback while wiring a graph.
type workflowWatcher struct {
	patterns  []string
	ignore    []string
	debounce  time.Duration
	watcher   *fsnotify.Watcher
	logger    slogger.Logger
	debouncer map[string]time.Time
}

func newWorkflowWatcher(patterns []string) (*workflowWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &workflowWatcher{
		patterns:  patterns,
		ignore:    watchIgnore,
		debounce:  time.Duration(watchDebounceMs) * time.Millisecond,
		watcher:   watcher,
		logger:    newLogger(),
		debouncer: make(map[string]time.Time),
	}, nil
}

func (w *workflowWatcher) start(ctx context.Context) error {
	defer w.watcher.Close()

	watchedDirs := make(map[string]bool)
	for _, pattern := range w.patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			dir := filepath.Dir(match)
			if watchedDirs[dir] {
				continue
			}
			if err := w.watcher.Add(dir); err != nil {
				w.logger.Warn("failed to watch directory", "dir", dir, "error", err)
				continue
			}
			watchedDirs[dir] = true
		}
	}
	if len(watchedDirs) == 0 {
		return fmt.Errorf("no files match the given patterns")
	}

	fmt.Println(boldStyle.Sprint("Watching workflows for changes. Press Ctrl+C to stop."))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *workflowWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !w.matches(event.Name) {
		return
	}
	now := time.Now()
	if last, ok := w.debouncer[event.Name]; ok && now.Sub(last) < w.debounce {
		return
	}
	w.debouncer[event.Name] = now
	w.revalidate(event.Name)
}

func (w *workflowWatcher) matches(path string) bool {
	for _, pattern := range w.ignore {
		if matched, _ := doublestar.PathMatch(pattern, path); matched {
			return false
		}
	}
	for _, pattern := range w.patterns {
		if matched, _ := doublestar.PathMatch(pattern, path); matched {
			return true
		}
	}
	return false
}

func (w *workflowWatcher) revalidate(path string) {
	wf, err := store.Load(path)
	if err != nil {
		fmt.Printf("%s %s: %s\n", errorStyle.Sprint("✘"), path, err)
		return
	}
	issues := engine.Validate(wf, fabric.DefaultCatalog(), nil, nil)
	if len(issues) == 0 {
		fmt.Printf("%s %s is ready to run\n", successStyle.Sprint("✔"), path)
		return
	}
	fmt.Printf("%s %s:\n", warnStyle.Sprint("!"), path)
	for _, issue := range issues {
		fmt.Printf("  [%s] %s\n", issue.Kind, issue.Message)
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch [patterns...]",
	Short: "Revalidate workflow files whenever they change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watcher, err := newWorkflowWatcher(args)
		if err != nil {
			return err
		}
		return watcher.start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", 500, "Debounce time in milliseconds to avoid rapid triggers")
	watchCmd.Flags().StringSliceVar(&watchIgnore, "ignore", nil, "Patterns to ignore")
}
