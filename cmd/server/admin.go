package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ckfr/ops-allocation/internal/permission"
	"github.com/ckfr/ops-allocation/internal/repository"
	"github.com/ckfr/ops-allocation/internal/utils"
)

var (
	okLabel   = color.New(color.FgGreen).SprintFunc()
	warnLabel = color.New(color.FgYellow).SprintFunc()
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			fmt.Printf("%s schema up to date (%s)\n", okLabel("✓"), a.cfg.DBDriver)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the starter ships and their default role templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.catalog().Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s seed complete\n", okLabel("✓"))
			fmt.Printf("  ships created:     %d\n", rep.ShipsCreated)
			fmt.Printf("  templates created: %d\n", rep.TemplatesCreated)
			fmt.Printf("  slots created:     %d\n", rep.SlotsCreated)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Provision missing slots for every role template",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.reconciler().ReconcileAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile (after %d new slots): %w", n, err)
			}
			if n == 0 {
				fmt.Printf("%s all slots already provisioned\n", okLabel("✓"))
				return nil
			}
			fmt.Printf("%s %d slots created\n", okLabel("✓"), n)
			return nil
		},
	}
}

func importCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog <file.json|->",
		Short: "Create or update ships from a JSON catalog",
		Long: `Reads a JSON array of {"name", "manufacturer", "role", "cargo", "crew"}
entries and creates or updates ships by name. The legacy category is derived
from the role text and the crew range from the crew text ("2-4", "3", "-").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.catalog().ImportCatalog(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("%s catalog imported: %d created, %d updated", okLabel("✓"), rep.Created, rep.Updated)
			if rep.Skipped > 0 {
				fmt.Printf(", %s", warnLabel(fmt.Sprintf("%d skipped", rep.Skipped)))
			}
			fmt.Println()
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var (
		username, email, password string
		superuser                 bool
		groups                    []string
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account, typically the first superuser",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			if err := utils.CheckPassword(password); err != nil {
				return err
			}
			for _, g := range groups {
				if !permission.ValidGroup(g) {
					return fmt.Errorf("unknown group %q (known: %s)", g, strings.Join(permission.KnownGroups, ", "))
				}
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			id, err := repository.NewUserRepo(a.db).Create(cmd.Context(), username, email, password, a.cfg.BcryptCost, superuser, groups)
			if err != nil {
				return err
			}
			role := "user"
			if superuser {
				role = color.New(color.FgHiMagenta).Sprint("superuser")
			}
			fmt.Printf("%s created %s %q (id %d)\n", okLabel("✓"), role, username, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "bypass every permission check")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "group membership (repeatable)")
	return cmd
}
