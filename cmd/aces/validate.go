package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "load and validate a task specification without running extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := loadTask(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			fmt.Printf("ok: trigger=%q trigger_children=%d\n", task.Trigger, len(task.Tree.Root.Children))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "task specification YAML path")
	cmd.MarkFlagRequired("config")
	return cmd
}
