// Package cli implements the fairshare-cli commands on top of a planner.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/chore"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/planner"
	"github.com/dukerupert/fairshare/internal/recurrence"
)

const Usage = `usage: fairshare-cli <command> [flags] [args]

commands:
  tasks      [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  recommend  [-month YYYY-MM]
  shares     [-month YYYY-MM]
  toggle     <task-id>
  move       <task-id> <YYYY-MM-DD|+days>
  request    <task-id> <+points|-points>
  requests
  decide     [-for partner -pin PIN] <request-id> approve|reject
  condition  [-date YYYY-MM-DD] [-pre N] <morning-score> [note]`

// ErrUsage is returned for an unknown command or malformed arguments.
var ErrUsage = errors.New("invalid usage")

// Run executes one command against collab and writes its result to out.
func Run(ctx context.Context, collab planner.Collaborator, clock calendar.Clock, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	today := clock.Today()
	p := planner.New(collab, clock, nil)
	load := func(anchor calendar.Date) error {
		return p.Load(ctx, anchor.FirstOfMonth(-2), anchor.LastOfMonth(1))
	}

	switch cmd {
	case "tasks":
		fromStr := fs.String("from", today.String(), "first day")
		toStr := fs.String("to", today.AddDays(6).String(), "last day")
		if err := fs.Parse(args); err != nil {
			return usageErr(err)
		}
		from, err := calendar.Parse(*fromStr)
		if err != nil {
			return usageErr(err)
		}
		to, err := calendar.Parse(*toStr)
		if err != nil {
			return usageErr(err)
		}
		if err := p.Load(ctx, from, to); err != nil {
			return err
		}
		return printTasks(out, p.AllTasks())

	case "recommend", "shares":
		month := fs.String("month", "", "month to report (YYYY-MM)")
		if err := fs.Parse(args); err != nil {
			return usageErr(err)
		}
		anchor, err := parseMonth(*month, today)
		if err != nil {
			return usageErr(err)
		}
		if err := load(anchor); err != nil {
			return err
		}
		report := p.Report(anchor)
		if cmd == "shares" {
			return printShares(out, report.Partners, report.Points)
		}
		return printRecommendations(out, report.Recommendations, report.Partners)

	case "toggle":
		if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
			return ErrUsage
		}
		if err := load(today); err != nil {
			return err
		}
		t, err := p.ToggleTask(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		state := "open"
		if t.IsDone {
			state = "done"
		}
		fmt.Fprintf(out, "%s is %s\n", t.Title, state)
		return nil

	case "move":
		if err := fs.Parse(args); err != nil || fs.NArg() != 2 {
			return ErrUsage
		}
		if err := load(today); err != nil {
			return err
		}
		id, target := fs.Arg(0), fs.Arg(1)
		var t model.Task
		var err error
		if days, ok := strings.CutPrefix(target, "+"); ok {
			n, convErr := strconv.Atoi(days)
			if convErr != nil {
				return usageErr(convErr)
			}
			t, err = p.Reschedule(ctx, id, n)
		} else {
			date, parseErr := calendar.Parse(target)
			if parseErr != nil {
				return usageErr(parseErr)
			}
			t, err = p.Move(ctx, id, date)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s moved to %s\n", t.Title, t.Date)
		return nil

	case "request":
		if err := fs.Parse(args); err != nil || fs.NArg() != 2 {
			return ErrUsage
		}
		delta, dir, err := parseDelta(fs.Arg(1))
		if err != nil {
			return usageErr(err)
		}
		if err := load(today); err != nil {
			return err
		}
		req, err := p.SubmitRequest(ctx, fs.Arg(0), delta, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "request %s: %s %s by %d points, awaiting %d vote(s)\n",
			req.ID, req.TaskTitle, req.Direction, req.Delta, len(req.Approvals))
		return nil

	case "requests":
		if err := load(today); err != nil {
			return err
		}
		return printRequests(out, p.Requests(), p.Me().ID)

	case "decide":
		forPartner := fs.String("for", "", "partner to vote for on this device")
		pin := fs.String("pin", "", "that partner's PIN")
		if err := fs.Parse(args); err != nil || fs.NArg() != 2 {
			return ErrUsage
		}
		if err := load(today); err != nil {
			return err
		}
		res, err := p.DecideFor(ctx, fs.Arg(0), model.DecisionInput{
			PartnerID: *forPartner,
			Decision:  model.Decision(fs.Arg(1)),
			PIN:       *pin,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "request %s is %s\n", res.Request.ID, res.Request.Status)
		if res.UpdatedTask != nil {
			fmt.Fprintf(out, "%s is now worth %d points\n", res.UpdatedTask.Title, res.UpdatedTask.Points)
		}
		return nil

	case "condition":
		dateStr := fs.String("date", today.String(), "day the entry is for")
		pre := fs.Int("pre", -1, "pre-chore score (omit to disable)")
		if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
			return ErrUsage
		}
		date, err := calendar.Parse(*dateStr)
		if err != nil {
			return usageErr(err)
		}
		morning, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return usageErr(err)
		}
		entry := model.ConditionEntry{
			Date:         date,
			MorningScore: morning,
			Note:         strings.Join(fs.Args()[1:], " "),
		}
		if *pre >= 0 {
			entry.PreChoreScore = pre
		} else {
			entry.PreChoreDisabled = true
		}
		if err := load(today); err != nil {
			return err
		}
		saved, err := p.UpsertCondition(ctx, entry)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "condition for %s saved (morning %d)\n", saved.Date, saved.MorningScore)
		return nil
	}
	return ErrUsage
}

func usageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

func parseMonth(s string, today calendar.Date) (calendar.Date, error) {
	if s == "" {
		return today, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("month must be YYYY-MM")
	}
	return calendar.Of(t), nil
}

// parseDelta reads "+15" or "-15".
func parseDelta(s string) (int, model.Direction, error) {
	dir := model.DirectionIncrease
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		s = s[1:]
		dir = model.DirectionDecrease
	default:
		return 0, "", fmt.Errorf("delta must start with + or -")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, "", fmt.Errorf("delta: %w", err)
	}
	return n, dir, nil
}

func printTasks(out io.Writer, tasks []model.Task) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDONE\tTITLE\tPOINTS\tPARTNER\tREPEATS\tID")
	for _, t := range tasks {
		done := " "
		if t.IsDone {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\t%d\t%s\t%s\t%s\n", t.Date, done, t.Title, t.Points, t.PartnerID, repeatLabel(t.Repeat), t.ID)
	}
	return w.Flush()
}

func repeatLabel(repeat string) string {
	if !chore.IsRepeating(repeat) {
		return "-"
	}
	rule, err := recurrence.Parse(repeat)
	if err != nil {
		return repeat
	}
	return rule.Describe()
}

func printShares(out io.Writer, partners []model.Partner, points map[string]int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTNER\tPOINTS\tSHARE\tCONDITION")
	for _, p := range partners {
		score := "-"
		if p.ConditionScore != nil {
			score = strconv.Itoa(*p.ConditionScore)
		}
		fmt.Fprintf(w, "%s\t%d\t%d%%\t%s\n", p.Name, points[p.ID], p.Share, score)
	}
	return w.Flush()
}

func printRecommendations(out io.Writer, recs []model.Recommendation, partners []model.Partner) error {
	names := make(map[string]string, len(partners))
	for _, p := range partners {
		names[p.ID] = p.Name
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHORE\tPOINTS\tCATEGORY\tSUGGESTED FOR")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Title, r.Points, r.Category, names[r.AssignedPartnerID])
	}
	return w.Flush()
}

func printRequests(out io.Writer, reqs []model.AdjustmentRequest, me string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tCHANGE\tFROM\tMY VOTE")
	for _, r := range reqs {
		sign := "+"
		if r.Direction == model.DirectionDecrease {
			sign = "-"
		}
		vote := string(r.Approvals[me])
		if vote == "" {
			vote = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s%d\t%s\t%s\n", r.ID, r.TaskTitle, sign, r.Delta, r.RequesterID, vote)
	}
	return w.Flush()
}
