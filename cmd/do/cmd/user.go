package cmd

import (
	"fmt"

	"github.com/lineaapp/linea/internal/db"
	"github.com/lineaapp/linea/internal/repository"
	"github.com/lineaapp/linea/internal/service"
	"github.com/lineaapp/linea/internal/validation"
	"github.com/spf13/cobra"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(premiumCmd())
	return cmd
}

func premiumCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "premium <email>",
		Short: "Grant or revoke premium without a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close(conn)

			users := repository.NewUserRepository(conn)
			subscriptions := service.NewSubscriptionService(repository.NewSubscriptionRepository(conn))

			user, err := users.ByEmail(validation.NormalizeEmail(args[0]))
			if err != nil {
				return fmt.Errorf("failed to find %s: %w", args[0], err)
			}

			if revoke {
				sub, err := subscriptions.Subscription(user.ID)
				if err != nil {
					return err
				}
				err = subscriptions.DowngradeToFree(sub)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now on the free plan\n", user.Email)
				return nil
			}

			err = subscriptions.GrantPremium(user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now premium\n", user.Email)
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "switch the user back to the free plan")
	return cmd
}
