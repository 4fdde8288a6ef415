package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/retrace/internal/infrastructure/cache"
	"github.com/doeshing/retrace/internal/infrastructure/cli/helpers"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(env *Env) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the coaching response cache",
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cache entries",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := cacheStore(env)
				if err != nil {
					return err
				}
				return listCacheEntries(cmd.OutOrStdout(), store)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached response",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := cacheStore(env)
				if err != nil {
					return err
				}
				if err := store.Clear(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Dir())
				return nil
			},
		},
		&cobra.Command{
			Use:   "size",
			Short: "Show cache size on disk",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := cacheStore(env)
				if err != nil {
					return err
				}
				size, err := store.Size()
				if err != nil {
					return fmt.Errorf("failed to calculate cache size: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cache directory: %s\nSize: %s\n", store.Dir(), humanize.Bytes(uint64(size)))
				return nil
			},
		},
	)

	return cacheCmd
}

func cacheStore(env *Env) (*cache.FileCache, error) {
	if env.Container == nil || env.Container.CacheStore == nil {
		return nil, errors.New(ErrCacheStoreUnavailable)
	}
	return env.Container.CacheStore, nil
}

func listCacheEntries(out io.Writer, store *cache.FileCache) error {
	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to retrieve cache entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, MsgNoCachedResponses)
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(out, "%s | %s | %s\n", shortKey(entry.Key), entry.Model, humanize.Time(entry.CreatedAt))
	}
	fmt.Fprintln(out, "Entries per model:")
	for _, stat := range helpers.TopCounts(helpers.EntriesPerModel(entries), 0) {
		fmt.Fprintf(out, "  %s: %d\n", stat.Key, stat.Count)
	}
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
