// Package dispatch sends one message per selected guest and joins the outcomes.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"wedding-invites/internal/apperr"
	"wedding-invites/internal/gateway"
	"wedding-invites/internal/models"
)

// DefaultLimit bounds the number of sends in flight when Config.Limit is unset.
const DefaultLimit = 8

const (
	ReasonNotFound      = "guest not found"
	ReasonMissingPhone  = "missing phone"
	ReasonMissingInvite = "missing invite"
)

// GuestLookup resolves guest ids against the current snapshot.
type GuestLookup interface {
	Guest(id string) (models.Guest, bool)
}

type Config struct {
	// Origin is prepended to /rsvp/<guestId> in every message.
	Origin string
	// Limit is the maximum number of sends in flight.
	Limit int
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Options tune a single dispatch.
type Options struct {
	// RequireInvite fails guests that are not linked to an invite.
	RequireInvite bool
}

type Dispatcher struct {
	guests GuestLookup
	sender gateway.Sender
	origin string
	limit  int
	tracer trace.Tracer
	log    zerolog.Logger
}

func New(guests GuestLookup, sender gateway.Sender, cfg Config, log zerolog.Logger) *Dispatcher {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Dispatcher{
		guests: guests,
		sender: sender,
		origin: cfg.Origin,
		limit:  limit,
		tracer: tp.Tracer("wedding-invites/internal/dispatch"),
		log:    log.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch sends template plus the guest's confirmation link to every id.
// One failure never stops the others; the aggregate lists one result per id
// in the order of guestIDs.
func (d *Dispatcher) Dispatch(ctx context.Context, guestIDs []string, template string, opts Options) Aggregate {
	ctx, span := d.tracer.Start(ctx, "dispatch.bulk", trace.WithAttributes(
		attribute.Int("guests", len(guestIDs)),
		attribute.Int("limit", d.limit),
	))
	defer span.End()

	results := make([]Result, len(guestIDs))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, id := range guestIDs {
		guest, ok := d.guests.Guest(id)
		if !ok {
			results[i] = Result{GuestID: id, Error: ReasonNotFound}
			continue
		}
		if reason := ineligible(guest, opts); reason != "" {
			results[i] = Result{GuestID: id, Name: guest.Name, Error: reason}
			continue
		}

		link := gateway.ConfirmationURL(d.origin, guest.ID)
		msg := gateway.Message{
			GuestID:    guest.ID,
			Phone:      guest.Phone,
			Text:       BuildMessage(template, link),
			InviteLink: link,
		}
		g.Go(func() error {
			results[i] = d.send(ctx, guest, msg)
			return nil
		})
	}
	_ = g.Wait()

	agg := Join(results)
	for _, r := range agg.Results {
		if !r.Success {
			d.log.Warn().Str("guest_id", r.GuestID).Str("name", r.Name).Str("reason", r.Error).Msg("Send failed")
		}
	}
	d.log.Info().
		Int("attempted", agg.TotalAttempted).
		Int("sent", agg.TotalSent).
		Int("failed", agg.TotalFailed).
		Str("outcome", agg.Outcome().String()).
		Msg("Bulk dispatch finished")

	span.SetAttributes(attribute.Int("sent", agg.TotalSent), attribute.Int("failed", agg.TotalFailed))
	if agg.Outcome() == OutcomeFailure {
		span.SetStatus(codes.Error, "no message sent")
	}
	return agg
}

func (d *Dispatcher) send(ctx context.Context, guest models.Guest, msg gateway.Message) Result {
	res := Result{GuestID: guest.ID, Name: guest.Name}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.send", trace.WithAttributes(attribute.String("guest_id", guest.ID)))
	defer span.End()

	receipt, err := d.sender.Send(ctx, msg)
	if err != nil {
		err = apperr.Transport("send", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.ProviderMessageID = receipt.ProviderMessageID
	return res
}

func ineligible(g models.Guest, opts Options) string {
	if !g.HasContact() {
		return ReasonMissingPhone
	}
	if opts.RequireInvite && g.InviteID == "" {
		return ReasonMissingInvite
	}
	return ""
}

// BuildMessage appends the confirmation link to the template.
func BuildMessage(template, link string) string {
	if template == "" {
		return link
	}
	return fmt.Sprintf("%s\n\n%s", template, link)
}
