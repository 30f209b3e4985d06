package cmds

import "github.com/spf13/cobra"

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newSubmitCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newKindsCmd())
	return nil
}
