package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/vbt/log"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script",
	Long: `To load completions:

Bash:

  $ source <(vbt completion bash)

  # To load completions for each session, execute once:
  $ vbt completion bash > /etc/bash_completion.d/vbt

Zsh:

  $ vbt completion zsh > "${fpath[1]}/_vbt"

  # You will need to start a new shell for this setup to take effect.

fish:

  $ vbt completion fish > ~/.config/fish/completions/vbt.fish

PowerShell:

  PS> vbt completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run:                   runCompletion,
	Hidden:                true,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) {
	var err error
	switch args[0] {
	case "bash":
		err = cmd.Root().GenBashCompletionV2(os.Stdout, true)
	case "zsh":
		err = cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		err = cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
	}
	if err != nil {
		log.Fatal("Failed to generate %s completion: %s.\n", args[0], err)
	}
}
