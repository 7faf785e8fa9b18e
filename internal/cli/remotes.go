package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRemotesCmd creates the remotes command.
func NewRemotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remotes",
		Short: "List configured remotes",
		RunE:  runRemotes,
	}

	return cmd
}

func runRemotes(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Remotes) == 0 {
		fmt.Println("No remotes configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, TabWidth, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL\tCONCURRENCY\tRETRIES")
	for _, rc := range cfg.Remotes {
		remote := rc.ToRemote()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", remote.Name, remote.URL, remote.DownloadConcurrency, remote.MaxRetries)
	}
	return w.Flush()
}
