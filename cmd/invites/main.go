package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wedding-invites/internal/config"
	"wedding-invites/internal/gateway"
	"wedding-invites/internal/session"
	"wedding-invites/internal/storage"
	"wedding-invites/internal/telemetry"
	"wedding-invites/internal/whatsapp"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is loaded
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	storage *storage.Storage
	// shutdownTracing flushes spans on exit
	shutdownTracing func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "invites",
		Short:         "Manage event guests and invitations and send them RSVP links over WhatsApp",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = cfg.Logger()

			a.shutdownTracing, err = telemetry.Setup(cmd.Context(), "invites", telemetry.Config{
				Endpoint: cfg.OTelEndpoint,
				Enabled:  cfg.OTelEnabled,
			})
			if err != nil {
				return fmt.Errorf("error initializing tracing: %w", err)
			}

			a.storage, err = storage.NewStorage(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("error initializing storage: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdownTracing != nil {
				if err := a.shutdownTracing(context.Background()); err != nil {
					a.log.Warn().Err(err).Msg("Failed to flush traces")
				}
			}
			if a.storage != nil {
				return a.storage.Close()
			}
			return nil
		},
	}

	root.AddCommand(
		newEventCmd(a),
		newInviteCmd(a),
		newGuestsCmd(a),
		newStatusCmd(a),
		newConfirmAllCmd(a),
		newLinkCmd(a),
		newSendCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newBotCmd(a),
	)
	return root
}

// openSession loads eventID into a new session using sender for outbound messages
func (a *app) openSession(ctx context.Context, eventID string, sender gateway.Sender) (*session.Session, error) {
	if eventID == "" {
		return nil, fmt.Errorf("--event is required")
	}
	if _, err := a.storage.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	s := session.New(a.storage, sender, session.Config{
		Origin:      a.cfg.PublicOrigin,
		SendLimit:   a.cfg.SendConcurrency,
		CountryCode: a.cfg.DefaultCountryCode,
	}, a.log)
	if err := s.Open(ctx, eventID); err != nil {
		return nil, err
	}
	return s, nil
}

// connectWhatsApp links the WhatsApp device, pairing by QR code on first use
func (a *app) connectWhatsApp(ctx context.Context) (*whatsapp.Service, error) {
	svc, err := whatsapp.NewService(ctx, &whatsapp.Config{
		DataDir:     a.cfg.DataDir,
		CountryCode: a.cfg.DefaultCountryCode,
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("error initializing WhatsApp service: %w", err)
	}

	fmt.Println("Connecting to WhatsApp...")
	if err := svc.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to WhatsApp: %w", err)
	}
	return svc, nil
}
