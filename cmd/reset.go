package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/stable/internal/utils"
	"github.com/spf13/cobra"
)

const statsSuffix = "_stats.json"

var (
	resetDB    bool
	resetFiles bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stable state (registry tables, exported cards)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Run: func(cmd *cobra.Command, args []string) {
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetFiles {
			resetDB = true
			resetFiles = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetDB {
			if confirm(reader, "⚠️  Are you sure you want to DROP all registry tables?") {
				if err := ensureStore(cmd.Context()); err != nil {
					utils.Die("Failed to open registry", err)
				}
				fmt.Println("🗑️  Clearing Registry...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.Die("Failed to reset registry", err)
				}
			}
		}

		if resetFiles {
			if confirm(reader, fmt.Sprintf("⚠️  Are you sure you want to delete all exported cards in %s?", Cfg.Output.Dir)) {
				fmt.Println("🗑️  Clearing Exported Cards...")
				removed := removeExports(Cfg.Output.Dir)
				fmt.Printf("   Removed %d files\n", removed)
			}
		}

		fmt.Println("✨ Stable Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "registry", false, "Clear the registry database")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Clear exported stat cards and their images")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

// removeExports deletes every <name>_stats.json in dir along with its <name>.png.
// Other files are left alone.
func removeExports(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+statsSuffix))
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to list %s: %v\n", dir, err)
		return 0
	}

	removed := 0
	for _, stats := range matches {
		img := strings.TrimSuffix(stats, statsSuffix) + ".png"
		for _, path := range []string{stats, img} {
			if err := os.Remove(path); err != nil {
				if !os.IsNotExist(err) {
					fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
				}
				continue
			}
			removed++
		}
	}
	return removed
}
