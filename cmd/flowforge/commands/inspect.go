package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowforge/internal/checkpoint"
	"flowforge/internal/hyperparams"
)

func inspectCmd() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the hyperparameters and progress of a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			hp, err := hyperparams.Load(snapshotPath)
			if err != nil {
				return err
			}
			fmt.Print(hp.Table())

			meta, err := checkpoint.ReadMeta(snapshotPath)
			if err != nil {
				return err
			}
			if meta.RunID != "" {
				fmt.Printf("run_id      %s\n", meta.RunID)
				fmt.Printf("step        %d\n", meta.Step)
				fmt.Printf("saved_at    %s\n", meta.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot-path", "snapshot", "directory holding the trained snapshot")
	return cmd
}
