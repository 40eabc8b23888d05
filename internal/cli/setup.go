package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhjang/speech2text/internal/ffmpeg"
)

// SetupCmd creates the setup command, which prepares the ffmpeg toolchain
// ahead of the first transcription.
func SetupCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Install and verify the audio toolchain",
		Long: `Install and verify the ffmpeg toolchain.

Looks for an existing ffmpeg binary on this machine. If none is found,
attempts an install via the system package manager, falling back to a
static binary download. The transcribe command runs this automatically;
setup exists to do the slow part up front.`,
		Example: `  speech2text setup`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, env)
		},
	}
}

func runSetup(cmd *cobra.Command, env *Env) error {
	fmt.Fprintln(env.Stderr, "Checking audio toolchain...")

	state, err := env.Toolchain.EnsureReady(cmd.Context())
	if err != nil {
		return err
	}
	if state.Status != ffmpeg.StatusReady {
		return fmt.Errorf("%w: toolchain state is %s", ffmpeg.ErrNotReady, state.Status)
	}

	fmt.Fprintf(env.Stdout, "ffmpeg ready: %s\n", state.Path)
	return nil
}
