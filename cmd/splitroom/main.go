// Command splitroom is a terminal client for shared receipt rooms.
//
// Usage:
//
//	splitroom [flags] create <room-name> <your-name> <payee-id>
//	splitroom [flags] join <your-name> <payee-id>
//	splitroom [flags] show
//	splitroom [flags] upload <image-file>
//	splitroom [flags] toggle <item-index> [participant-id]
//	splitroom [flags] settle [participant-id]
//	splitroom [flags] close
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitroom/internal/config"
	"github.com/mmynk/splitroom/internal/middleware"
	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/roomclient"
	"github.com/mmynk/splitroom/internal/session"
	"github.com/mmynk/splitroom/pkg/logging"
)

var errUsage = errors.New("usage: splitroom [flags] create|join|show|upload|toggle|settle|close ...")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "splitroom:", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs.
type app struct {
	cfg     *config.Client
	client  *roomclient.Client
	session *session.Session
	out     io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, rest, err := config.LoadClient(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errUsage
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	a := &app{cfg: cfg, out: out}
	a.client = roomclient.New(nil, cfg.ServerURL, roomclient.Config{
		Timeout:          time.Duration(cfg.RequestTimeout),
		FailureThreshold: uint32(cfg.BreakerFailures),
		OpenTimeout:      time.Duration(cfg.BreakerOpenAfter),
	}, connect.WithInterceptors(middleware.ParticipantToHeader(a.viewer)))
	a.session = session.New(a.client, cfg.RoomID, cfg.ViewerID,
		session.WithCurrency(cfg.Currency),
		session.WithPaymentScheme(cfg.PaymentScheme),
		session.WithLogger(logger),
	)

	cmd, cmdArgs := rest[0], rest[1:]
	if cmd != "create" && cfg.RoomID == "" {
		return errors.New("room ID required (-r or SPLITROOM_ROOM)")
	}

	switch cmd {
	case "create":
		return a.create(ctx, cmdArgs)
	case "join":
		return a.join(ctx, cmdArgs)
	case "show":
		return a.show(ctx)
	case "upload":
		return a.upload(ctx, cmdArgs)
	case "toggle":
		return a.toggle(ctx, cmdArgs)
	case "settle":
		return a.settle(ctx, cmdArgs)
	case "close":
		return a.close(ctx)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func (a *app) viewer() string {
	if a.session == nil {
		return a.cfg.ViewerID
	}
	return a.session.Viewer()
}

func (a *app) create(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	res, err := a.client.CreateRoom(ctx, args[0], args[1], args[2], a.cfg.Currency)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "room:        %s\n", res.Room.ID)
	fmt.Fprintf(a.out, "participant: %s\n", res.ParticipantID)
	return nil
}

func (a *app) join(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := a.session.Join(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "participant: %s\n", id)
	return nil
}

func (a *app) show(ctx context.Context) error {
	if err := a.session.Refresh(ctx); err != nil {
		return err
	}
	snap := a.session.Snapshot()
	r := snap.Room

	status := "open"
	if !r.IsActive {
		status = "closed"
	}
	fmt.Fprintf(a.out, "%s (%s, %s)\n\n", r.Name, r.Currency, status)

	names := make(map[string]string, len(r.Participants))
	for _, p := range r.Participants {
		names[p.ID] = p.DisplayName
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if snap.Receipt != nil {
		fmt.Fprintln(tw, "#\tITEM\tTOTAL\tTAGGED")
		for _, item := range snap.Receipt.Items {
			tagged := make([]string, 0, len(item.Tags))
			for _, id := range item.Tags {
				tagged = append(tagged, names[id])
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", item.Index, item.Name, models.FormatAmount(item.LineTotal), strings.Join(tagged, ", "))
		}
		fmt.Fprintln(tw)
	} else {
		fmt.Fprintln(tw, "no receipt uploaded")
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "PARTICIPANT\tID\tSHARE")
	for _, p := range r.Participants {
		name := p.DisplayName
		if p.ID == r.CreatorID {
			name += " (creator)"
		}
		if p.ID == a.session.Viewer() {
			name += " (you)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, p.ID, models.FormatAmount(snap.Shares.Get(p.ID)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	summary, err := a.session.Summary()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\nunassigned %s  shared %s  total %s\n",
		models.FormatAmount(summary.Unassigned),
		models.FormatAmount(summary.Shared),
		models.FormatAmount(summary.NetAmount),
	)
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if err := a.session.Refresh(ctx); err != nil {
		return err
	}
	if err := a.session.UploadReceipt(ctx, image); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "receipt uploaded: %d items\n", len(a.session.Snapshot().Items()))
	return nil
}

func (a *app) toggle(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid item index %q: %w", args[0], err)
	}
	participant := a.session.Viewer()
	if len(args) == 2 {
		participant = args[1]
	}
	if participant == "" {
		return session.ErrNoViewer
	}

	if err := a.session.Refresh(ctx); err != nil {
		return err
	}
	action, err := a.session.Toggle(ctx, index, participant)
	if err != nil {
		return err
	}
	shares, err := a.session.Shares()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s item %d; share now %s\n", action, index, models.FormatAmount(shares.Get(participant)))
	return nil
}

func (a *app) settle(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errUsage
	}
	if err := a.session.Refresh(ctx); err != nil {
		return err
	}

	targets := args
	if len(targets) == 0 {
		for _, p := range a.session.Snapshot().Room.Participants {
			if p.ID != a.session.Viewer() {
				targets = append(targets, p.ID)
			}
		}
	}

	for _, id := range targets {
		link, err := a.session.SettlementLink(id)
		if err != nil {
			return err
		}
		if link == "" {
			fmt.Fprintf(a.out, "%s: nothing owed\n", id)
			continue
		}
		fmt.Fprintf(a.out, "%s: %s\n", id, link)
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	viewer := a.session.Viewer()
	if viewer == "" {
		return session.ErrNoViewer
	}
	r, err := a.client.CloseRoom(ctx, a.cfg.RoomID, viewer)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "room %s closed\n", r.ID)
	return nil
}
