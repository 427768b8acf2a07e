package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wedding-invites/internal/dispatch"
	"wedding-invites/internal/gateway"
	"wedding-invites/internal/handler"
	"wedding-invites/internal/models"
	"wedding-invites/internal/roster"
	"wedding-invites/internal/session"
	"wedding-invites/internal/store"
)

// offline is the sender of commands that never message guests
var offline = gateway.SenderFunc(func(context.Context, gateway.Message) (gateway.Receipt, error) {
	return gateway.Receipt{}, errors.New("WhatsApp is not connected")
})

// selectFlags choose the guests a group action applies to: explicit ids
// when given, otherwise every guest matching the filter.
type selectFlags struct {
	status string
	group  string
	query  string
}

func (f *selectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "only guests with this RSVP status")
	cmd.Flags().StringVar(&f.group, "group", "", "only guests in this group")
	cmd.Flags().StringVar(&f.query, "query", "", "only guests whose name, email or phone contains this text")
}

func (f *selectFlags) filter() store.Filter {
	return store.Filter{Status: models.RSVPStatus(f.status), Group: f.group, Query: f.query}
}

func (f *selectFlags) apply(s *session.Session, ids []string) {
	if len(ids) > 0 {
		for _, id := range ids {
			if !s.IsSelected(id) {
				s.Toggle(id)
			}
		}
		return
	}
	s.SetFilter(f.filter())
	s.SelectAll()
}

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "event", Short: "Manage events"}

	var date, location string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.storage.CreateEvent(cmd.Context(), models.Event{Name: args[0], Date: date, Location: location})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Event created: %s\n", e.ID)
			return nil
		},
	}
	add.Flags().StringVar(&date, "date", "", "event date")
	add.Flags().StringVar(&location, "location", "", "event location")

	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.storage.ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s\n", e.ID, e.Name, e.Date, e.Location)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newInviteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "invite", Short: "Manage invites"}

	var (
		eventID string
		style   models.InviteStyle
	)
	add := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create an invite for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			inv, err := s.CreateInvite(cmd.Context(), models.Invite{Title: args[0], Style: style})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Invite created: %s\n", inv.ID)
			return nil
		},
	}
	add.Flags().StringVar(&style.Template, "template", "", "invite template name")
	add.Flags().StringVar(&style.Background, "background", "", "background color")
	add.Flags().StringVar(&style.Accent, "accent", "", "accent color")
	add.Flags().StringVar(&style.Font, "font", "", "font family")
	add.Flags().StringVar(&style.ImageURL, "image", "", "image URL")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the invites of an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			for _, inv := range s.Snapshot().Invites() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", inv.ID, inv.Title)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&eventID, "event", "", "event id")
	cmd.AddCommand(add, list)
	return cmd
}

func newGuestsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "guests", Short: "Manage guests"}
	var eventID string

	var sel selectFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List guests, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			s.SetFilter(sel.filter())
			printGuests(cmd.OutOrStdout(), s.Visible())
			counts := s.Snapshot().Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "pending: %d  confirmed: %d  declined: %d\n",
				counts[models.RSVPPending], counts[models.RSVPConfirmed], counts[models.RSVPDeclined])
			return nil
		},
	}
	sel.register(list)

	var g models.Guest
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a guest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			g.Name = args[0]
			created, err := s.CreateGuest(cmd.Context(), g)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Guest added: %s\n", created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&g.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&g.Email, "email", "", "email address")
	add.Flags().StringVar(&g.Group, "group", "", "group tag")
	add.Flags().BoolVar(&g.WhatsApp, "whatsapp", true, "guest uses WhatsApp")
	add.Flags().StringVar(&g.InviteID, "invite", "", "invite id")

	del := &cobra.Command{
		Use:   "delete GUEST_ID...",
		Short: "Delete guests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			var errs []error
			for _, id := range args {
				if err := s.DeleteGuest(cmd.Context(), id); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.PersistentFlags().StringVar(&eventID, "event", "", "event id")
	cmd.AddCommand(list, add, del)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var eventID string
	cmd := &cobra.Command{
		Use:   "status GUEST_ID pending|confirmed|declined",
		Short: "Set a guest's RSVP status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			g, err := s.SetStatus(cmd.Context(), args[0], models.RSVPStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is now %s\n", g.Name, g.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	return cmd
}

func newConfirmAllCmd(a *app) *cobra.Command {
	var (
		eventID string
		sel     selectFlags
	)
	cmd := &cobra.Command{
		Use:   "confirm-all [GUEST_ID...]",
		Short: "Confirm the given guests, or every guest matching the filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			sel.apply(s, args)
			n := len(s.Selected())
			if err := s.ConfirmSelected(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Confirmed %d guests\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	sel.register(cmd)
	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	var (
		eventID string
		sel     selectFlags
	)
	cmd := &cobra.Command{
		Use:   "link INVITE_ID [GUEST_ID...]",
		Short: "Link guests to an invite",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			sel.apply(s, args[1:])
			n := len(s.Selected())
			if err := s.LinkSelected(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Linked %d guests to %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	sel.register(cmd)
	return cmd
}

func newSendCmd(a *app) *cobra.Command {
	var (
		eventID       string
		message       string
		requireInvite bool
		sel           selectFlags
	)
	cmd := &cobra.Command{
		Use:   "send [GUEST_ID...]",
		Short: "Send the message and each guest's RSVP link over WhatsApp",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wa, err := a.connectWhatsApp(ctx)
			if err != nil {
				return err
			}
			defer wa.Disconnect()

			s, err := a.openSession(ctx, eventID, wa)
			if err != nil {
				return err
			}
			sel.apply(s, args)

			agg, err := s.SendBulk(ctx, message, dispatch.Options{RequireInvite: requireInvite})
			if agg.TotalAttempted > 0 {
				printNotice(cmd.OutOrStdout(), agg)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message text; the RSVP link is appended")
	cmd.Flags().BoolVar(&requireInvite, "require-invite", false, "skip guests not linked to an invite")
	sel.register(cmd)
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		eventID  string
		mappings []string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import guests from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping := roster.IdentityMapping()
			for _, m := range mappings {
				field, column, ok := strings.Cut(m, "=")
				if !ok {
					return fmt.Errorf("invalid mapping %q, expected field=column", m)
				}
				mapping[roster.Field(field)] = column
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			guests, err := roster.Import(f, mapping)
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			n, err := s.ImportGuests(cmd.Context(), guests)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d guests\n", n, len(guests))
			return err
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringArrayVar(&mappings, "map", nil, "field=column mapping, repeatable (defaults to identical names)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var eventID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export guests as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), eventID, offline)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return roster.Export(w, s.Snapshot().Guests())
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to stdout)")
	return cmd
}

func newBotCmd(a *app) *cobra.Command {
	var (
		eventID     string
		reloadEvery time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Listen for RSVP replies on WhatsApp and serve the public RSVP links",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reloadEvery <= 0 {
				return fmt.Errorf("--reload-every must be positive")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			event, err := a.storage.GetEvent(ctx, eventID)
			if err != nil {
				return err
			}
			wa, err := a.connectWhatsApp(ctx)
			if err != nil {
				return err
			}
			defer wa.Disconnect()

			s, err := a.openSession(ctx, eventID, wa)
			if err != nil {
				return err
			}

			rsvp := handler.NewRSVPHandler(s, s, wa, event, a.cfg.DefaultCountryCode, a.log)
			wa.SetMessageHandler(rsvp.HandleMessage)

			api := handler.NewAPI(s, s, event, a.log)
			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           api.Handler(a.cfg.AllowedOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.log.Error().Err(err).Msg("HTTP server stopped")
					stop()
				}
			}()
			a.log.Info().Str("addr", a.cfg.HTTPAddr).Str("event", event.Name).Msg("Listening for RSVP responses")

			ticker := time.NewTicker(reloadEvery)
			defer ticker.Stop()
		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case <-ticker.C:
					if err := s.Reload(ctx); err != nil {
						a.log.Warn().Err(err).Msg("Failed to reload guests")
					}
				}
			}

			fmt.Println("\nShutting down...")
			s.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().DurationVar(&reloadEvery, "reload-every", time.Minute, "how often to reload guests from the database")
	return cmd
}

func printGuests(w io.Writer, guests []models.Guest) {
	if len(guests) == 0 {
		fmt.Fprintln(w, "No guests found.")
		return
	}

	fmt.Fprintf(w, "📋 Guests (%d):\n", len(guests))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, g := range guests {
		fmt.Fprintf(w, "ID: %s\n", g.ID)
		fmt.Fprintf(w, "Name: %s\n", g.Name)
		if g.Phone != "" {
			fmt.Fprintf(w, "Phone: %s\n", g.Phone)
		}
		if g.Group != "" {
			fmt.Fprintf(w, "Group: %s\n", g.Group)
		}
		fmt.Fprintf(w, "Status: %s\n", g.Status)
		if !g.RSVPDate.IsZero() {
			fmt.Fprintf(w, "RSVP Date: %s\n", g.RSVPDate.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}
}

func printNotice(w io.Writer, agg dispatch.Aggregate) {
	n := agg.Notice()
	icon := "✅"
	switch n.Level {
	case dispatch.LevelWarning:
		icon = "⚠️"
	case dispatch.LevelError:
		icon = "❌"
	}
	fmt.Fprintf(w, "%s %s\n", icon, n.Text)
}
