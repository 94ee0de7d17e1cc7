package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glasspane/glasspane/pkg/config"
)

func newValidateCommand() *cobra.Command {
	var printEffective bool

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration file",
		Long: `Validate a YAML configuration file: syntax, value ranges, and
cross-field rules. A missing file validates the built-in defaults.`,
		Example: `  # Validate the default config path
  glasspane validate

  # Validate a specific file and print the effective config
  glasspane validate --print ./glasspane.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			log.Info().Str("path", path).Msg("Configuration valid")

			if printEffective {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return fmt.Errorf("failed to render config: %w", err)
				}
				return enc.Close()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printEffective, "print", false, "print the effective configuration")
	return cmd
}
