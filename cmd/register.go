package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pinpoint-server/config"
	"pinpoint-server/services"
	"pinpoint-server/utils/logger"
)

var registerCmd = &cobra.Command{
	Use:   "register <username> <email> <password>",
	Short: "Create a password account",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		logger.Setup(cfg.LogLevel, cfg.LogFormat)

		b, err := connectBackends(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer b.Close(cmd.Context())

		passwords := services.NewPasswordProvider(services.NewMongoUserRepository(cmd.Context(), b.db))
		id, err := passwords.Register(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
