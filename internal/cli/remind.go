package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	emailPkg "mentorlog/internal/adapters/email"
	accountStore "mentorlog/internal/adapters/storage/account"
	outboxStore "mentorlog/internal/adapters/storage/outbox"
	recordStore "mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/application/orchestrators"
	"mentorlog/internal/domain/outbox"
)

var remindDeliver bool

func init() {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Queue hole reminder emails for mentors",
		Long: "Sweep the roster for unfilled sessions and queue one reminder email per\n" +
			"mentor with outstanding holes. With --deliver, pending outbox entries are\n" +
			"sent immediately instead of waiting for the server's background worker.",
		Run: runRemind,
	}
	cmd.Flags().BoolVar(&remindDeliver, "deliver", false, "Process pending outbox entries after queueing")

	RootCmd.AddCommand(cmd)
}

func runRemind(cmd *cobra.Command, args []string) {
	db, err := openDB()
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	obStore := outboxStore.NewSQLiteStore(db)
	deps := orchestrators.RemindHolesDeps{
		RecordStore:  recordStore.NewSQLiteStore(db),
		AccountStore: accountStore.NewSQLiteStore(db),
		OutboxStore:  obStore,
	}

	result, err := orchestrators.ExecuteRemindHoles(cmd.Context(), deps)
	if err != nil {
		exitErr("reminder sweep", err)
	}

	if remindDeliver {
		from := os.Getenv("MENTORLOG_RESEND_FROM")
		if from == "" {
			from = "Mentorlog <noreply@mentorlog.org>"
		}
		var sender emailPkg.Sender
		if key := os.Getenv("MENTORLOG_RESEND_KEY"); key != "" {
			sender = emailPkg.NewResendSender(key, from)
		} else {
			sender = emailPkg.NewNoopSender()
		}
		processor := orchestrators.NewOutboxProcessor(obStore, map[string]orchestrators.ActionExecutor{
			outbox.ActionTypeHoleReminder: &orchestrators.HoleReminderExecutor{Sender: sender, From: from},
		})
		if err := processor.ProcessPending(cmd.Context()); err != nil {
			exitErr("deliver reminders", err)
		}
	}

	if formatFlag == "json" {
		fmt.Printf(`{"ok":true,"mentors_with_holes":%d,"reminders_queued":%d}`+"\n",
			result.MentorsWithHoles, result.RemindersQueued)
		return
	}
	fmt.Printf("mentors with holes: %d, reminders queued: %d\n", result.MentorsWithHoles, result.RemindersQueued)
}
