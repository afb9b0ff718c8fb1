package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/pkg/hooks"
)

// NewHookCmd creates the hook command with subcommands.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Work with hook scripts",
		Long:  "Hook scripts are Tengo programs run before and after each download",
	}

	cmd.AddCommand(newHookTemplateCmd(), newHookListCmd())

	return cmd
}

func newHookTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "template TYPE",
		Short:     "Print a starting script for a hook type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: hookTypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := hooks.ParseHookType(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), hooks.HookTemplate(t))
			return nil
		},
	}
}

func newHookListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which hook types have a script configured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := newStack(cfg, stackOpts)
			if err != nil {
				return err
			}
			for _, t := range hooks.Types() {
				state := "-"
				if s.scripts.HasHook(t) {
					state = paint(ansiGreen, "loaded")
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", t, state)
			}
			return nil
		},
	}
}

func hookTypeNames() []string {
	types := hooks.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
