package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	recordStore "mentorlog/internal/adapters/storage/record"
	recordDomain "mentorlog/internal/domain/record"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import legacy attendance rows from CSV",
		Long: "Import rows exported from the legacy attendance sheet. Expected columns:\n" +
			"mentor, student, date (YYYY-MM-DD), session_number, unexcused, progress, exit_ticket.\n" +
			"Rows with unparseable dates are skipped with a warning; a missing or\n" +
			"zero session number is stored as 0 and treated as a legacy row.",
		Args: cobra.ExactArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	f, err := os.Open(args[0])
	if err != nil {
		exitErr("open csv", err)
	}
	defer f.Close()

	db, err := openDB()
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	store := recordStore.NewSQLiteStore(db)
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var imported, skipped, line int
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			exitErr(fmt.Sprintf("read csv line %d", line), err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "mentor") {
			continue // header row
		}
		if len(row) < 3 {
			slog.Warn("import_event", "event", "row_skipped", "line", line, "reason", "too few columns")
			skipped++
			continue
		}

		rec := recordDomain.SessionRecord{
			ID:          uuid.NewString(),
			MentorName:  strings.TrimSpace(row[0]),
			StudentName: strings.TrimSpace(row[1]),
			CreatedAt:   time.Now().UTC(),
		}
		rec.SessionDate, err = time.Parse(recordDomain.DateLayout, strings.TrimSpace(row[2]))
		if err != nil {
			slog.Warn("import_event", "event", "row_skipped", "line", line, "reason", "unparseable date", "value", row[2])
			skipped++
			continue
		}
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(row[3]))
			if err != nil || n < 0 {
				slog.Warn("import_event", "event", "row_skipped", "line", line, "reason", "bad session number", "value", row[3])
				skipped++
				continue
			}
			rec.SessionNumber = n
		}
		if len(row) > 4 {
			v := strings.ToLower(strings.TrimSpace(row[4]))
			rec.Unexcused = v == "true" || v == "1" || v == "yes"
		}
		if len(row) > 5 {
			rec.ProgressText = strings.TrimSpace(row[5])
		}
		if len(row) > 6 {
			rec.ExitTicketURL = strings.TrimSpace(row[6])
		}

		rec.NormalizeKeys()
		if err := rec.Validate(); err != nil {
			slog.Warn("import_event", "event", "row_skipped", "line", line, "reason", err.Error())
			skipped++
			continue
		}
		if err := store.Append(cmd.Context(), rec); err != nil {
			exitErr(fmt.Sprintf("append line %d", line), err)
		}
		imported++
	}

	if formatFlag == "json" {
		fmt.Printf(`{"ok":true,"imported":%d,"skipped":%d}`+"\n", imported, skipped)
		return
	}
	fmt.Printf("imported %d rows, skipped %d\n", imported, skipped)
}
