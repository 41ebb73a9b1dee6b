package rerankd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprediction/go-reranker"
)

var (
	// Version info - these would be set by build flags in production
	commit    = "unknown"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit, and build date information for rerankd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rerankd\n")
		fmt.Printf("Version:    %s\n", reranker.Version)
		fmt.Printf("Commit:     %s\n", commit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
