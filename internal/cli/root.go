package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "0.3.0"

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZNIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "quiz-night",
		Short:   "Live multiplayer trivia rooms over Gorilla WebSocket",
		Version: releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyEnv(v, cmd.Flags())
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&port, "port", "", "port to listen on (env: QUIZNIGHT_PORT)")
	fs.StringVar(&configPath, "config", "config/config.yaml", "path to YAML config (env: QUIZNIGHT_CONFIG)")

	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewImportCmd(&configPath))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("quiz-night v{{.Version}}\n")
	cmd.SilenceUsage = true
	return cmd
}

// applyEnv fills every flag the user left unset from its QUIZNIGHT_* variable.
func applyEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
