package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	accountStore "mentorlog/internal/adapters/storage/account"
	"mentorlog/internal/application/orchestrators"
)

var seedEmail string

func init() {
	cmd := &cobra.Command{
		Use:   "seed-coordinator",
		Short: "Create the initial coordinator account",
		Long: "Create the coordinator account when the account table is empty.\n" +
			"The password is read from MENTORLOG_COORDINATOR_PASSWORD, never from a flag.",
		Run: runSeedCoordinator,
	}
	cmd.Flags().StringVar(&seedEmail, "email", "coordinator@mentorlog.org", "Coordinator email address")

	RootCmd.AddCommand(cmd)
}

func runSeedCoordinator(cmd *cobra.Command, args []string) {
	password := os.Getenv("MENTORLOG_COORDINATOR_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "error: MENTORLOG_COORDINATOR_PASSWORD is not set")
		os.Exit(1)
	}

	db, err := openDB()
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	deps := orchestrators.CreateAccountDeps{AccountStore: accountStore.NewSQLiteStore(db)}
	if err := orchestrators.ExecuteSeedCoordinator(cmd.Context(), deps, seedEmail, password); err != nil {
		exitErr("seed coordinator", err)
	}

	fmt.Printf("coordinator account ready: %s\n", seedEmail)
}
