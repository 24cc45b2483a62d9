package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	recordStore "mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/domain/timeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "holes",
		Short: "Report unfilled sessions across the whole roster",
		Long:  "Scan every (mentor, student) pair and list sessions that sit below a later completed session but have no record of their own.",
		Run:   runHoles,
	}

	RootCmd.AddCommand(cmd)
}

type holeRow struct {
	Mentor  string `json:"mentor"`
	Student string `json:"student"`
	Session int    `json:"session_number"`
	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date"`
}

func runHoles(cmd *cobra.Command, args []string) {
	db, err := openDB()
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	store := recordStore.NewSQLiteStore(db)

	// The long grid covers short-program students too: hole detection never
	// looks above a student's highest completed slot.
	entries, err := store.Roster(cmd.Context(), timeline.ProgramLong)
	if err != nil {
		exitErr("derive roster", err)
	}

	var rows []holeRow
	for _, entry := range entries {
		res := entry.Timeline.FindHoles()
		for _, h := range res.Holes {
			row := holeRow{
				Mentor:  entry.MentorName,
				Student: entry.StudentName,
				Session: h.SessionNumber,
				MaxDate: h.Range.Max.Format("2006-01-02"),
			}
			if !h.Range.OpenBelow() {
				row.MinDate = h.Range.Min.Format("2006-01-02")
			}
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Mentor != rows[j].Mentor {
			return rows[i].Mentor < rows[j].Mentor
		}
		if rows[i].Student != rows[j].Student {
			return rows[i].Student < rows[j].Student
		}
		return rows[i].Session < rows[j].Session
	})

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(b))
		return
	}

	if len(rows) == 0 {
		fmt.Println("no holes found")
		return
	}
	for _, row := range rows {
		min := row.MinDate
		if min == "" {
			min = "any"
		}
		fmt.Printf("%s / %s: session %d (acceptable dates %s .. %s)\n",
			row.Mentor, row.Student, row.Session, min, row.MaxDate)
	}
}
