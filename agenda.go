package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taskmate/calendar"
	"taskmate/connection"
	"taskmate/livesync"
	"taskmate/model"
	"taskmate/services"
	"taskmate/session"
	"taskmate/store"
)

func init() {
	var uid string
	var watch bool
	agendaCmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the reminder calendar of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			b, err := connection.OpenBackend(ctx, cfg, log.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			holder := session.NewHolder()
			go resolveSession(ctx, holder, b.Users, uid)
			if holder.Loading() {
				log.Debug().Str("userID", uid).Msg("Resolving session")
			}
			sess, err := holder.Wait(ctx)
			if err != nil {
				return err
			}

			if !watch {
				svc := services.NewAssignmentService(b.Assignments, b.Users, log.Logger, services.WithTimeout(cfg.WriteTimeout))
				items, err := svc.List(ctx, sess)
				if err != nil {
					return err
				}
				renderAgenda(os.Stdout, calendar.Build(items, time.Now(), loc), loc)
				return nil
			}
			return watchAgenda(ctx, b.Assignments, sess, loc, os.Stdout)
		},
	}
	agendaCmd.Flags().StringVarP(&uid, "uid", "u", "", "User ID (required)")
	agendaCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and reprint on every change")
	_ = agendaCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(agendaCmd)
}

// resolveSession loads the profile for uid into holder. A user without a
// profile document still gets a session carrying only the uid.
func resolveSession(ctx context.Context, holder *session.Holder, users store.Users, uid string) {
	if uid == "" {
		holder.Fail(session.ErrNoSession)
		return
	}
	p, err := users.Get(ctx, uid)
	switch {
	case errors.Is(err, model.ErrNotFound):
		holder.Set(session.Session{UID: uid})
	case err != nil:
		holder.Fail(err)
	default:
		holder.Set(session.FromProfile(p))
	}
}

// watchAgenda reprints the agenda on every list snapshot until ctx ends.
func watchAgenda(ctx context.Context, assignments store.Assignments, sess session.Session, loc *time.Location, w io.Writer) error {
	updates := make(chan []model.Assignment, 1)
	failed := make(chan error, 1)
	ctrl := livesync.NewController(assignments, sess, livesync.Handlers{
		OnList: func(u livesync.ListUpdate) {
			select {
			case <-updates:
			default:
			}
			updates <- u.Items
		},
		OnListError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	}, livesync.WithLogger(log.Logger))
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	defer ctrl.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			return err
		case items := <-updates:
			renderAgenda(w, calendar.Build(items, time.Now(), loc), loc)
		}
	}
}

func renderAgenda(w io.Writer, ov calendar.Overview, loc *time.Location) {
	_, _ = fmt.Fprintf(w, "%s (%s)\n", ov.Highlight, ov.Today)

	days := make([]string, 0, len(ov.Groups))
	for day := range ov.Groups {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		_, _ = fmt.Fprintf(w, "\n%s %s\n", day, dayStatus(ov.Markers[day].SelectedColor))
		for _, a := range ov.Groups[day] {
			at, _ := a.Reminder.Time()
			_, _ = fmt.Fprintf(w, "  %s  %s\n", at.In(loc).Format("03:04 PM"), a.Title)
		}
	}
}

func dayStatus(color string) string {
	switch color {
	case calendar.ColorToday:
		return "[today]"
	case calendar.ColorOverdue:
		return "[overdue]"
	default:
		return "[upcoming]"
	}
}
