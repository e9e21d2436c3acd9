package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"

	"gopkg.in/yaml.v3"
)

// StatusCmd prints the dashboard summary for one user.
type StatusCmd struct {
	User string `required:"" short:"u" help:"Username."`
}

func (c *StatusCmd) Run(ctx *Context) error {
	user, err := lookupUser(ctx, c.User)
	if err != nil {
		return err
	}
	st, err := ctx.Svc.Status(ctx.Ctx, user.ID)
	if err != nil {
		return err
	}

	w := ctx.Out
	fmt.Fprintf(w, "User:           %s\n", user.Username)
	fmt.Fprintf(w, "Balance:        %d AP\n", st.Balance)
	fmt.Fprintf(w, "Today:          net %+d (earned %d, spent %d, %d of %d left to earn)\n",
		st.Today.Net, st.Today.Earned, st.Today.Spent, st.RemainingEarn(), st.Settings.DailyEarnCap)
	fmt.Fprintf(w, "This week:      net %+d (earned %d, spent %d)\n", st.Week.Net, st.Week.Earned, st.Week.Spent)
	if st.ActiveQuest != nil {
		fmt.Fprintf(w, "Active quest:   %s (%d min logged)\n", st.ActiveQuest.Name, st.ActiveQuest.MinutesLogged)
	} else {
		fmt.Fprintln(w, "Active quest:   none")
	}
	fmt.Fprintf(w, "Quests:         %d of %d completed\n", st.QuestsCompleted, st.QuestsTotal)
	fmt.Fprintf(w, "Unlocked today: %s (needs net %d)\n", yesNo(st.UnlockedToday), st.Settings.UnlockNetAPToday)
	fmt.Fprintf(w, "Saturday lock:  %s\n", saturdayLockState(st.Settings, st.SaturdayLocked))
	fmt.Fprintf(w, "Can spend:      %s\n", yesNo(st.CanSpend()))
	fmt.Fprintln(w, "Spend options:")
	for _, opt := range st.SpendOptions {
		state := "ok"
		if !opt.Enabled {
			state = opt.Reason
		}
		fmt.Fprintf(w, "  %2d AP  %3d min  %s\n", opt.Cost, opt.Minutes, state)
	}
	return nil
}

// ExportCmd writes a user's data as YAML or JSON.
type ExportCmd struct {
	User   string `required:"" short:"u" help:"Username."`
	Format string `enum:"yaml,json" default:"yaml" short:"f" help:"Output format (yaml or json)."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	user, err := lookupUser(ctx, c.User)
	if err != nil {
		return err
	}
	export, err := ctx.Svc.Export(ctx.Ctx, user)
	if err != nil {
		return err
	}

	switch c.Format {
	case "json":
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(export)
	default:
		enc := yaml.NewEncoder(ctx.Out)
		enc.SetIndent(2)
		if err := enc.Encode(export); err != nil {
			return err
		}
		return enc.Close()
	}
}

func lookupUser(ctx *Context, username string) (*models.User, error) {
	user, err := ctx.DB.GetUserByUsername(ctx.Ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %s not found", username)
	}
	return user, err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func saturdayLockState(s models.UserSettings, locked bool) string {
	switch {
	case !s.SaturdayLockEnabled:
		return "disabled"
	case locked:
		return "locked until " + s.SaturdayUnlockTime.String()
	default:
		return "enabled, unlocked at " + s.SaturdayUnlockTime.String()
	}
}
