package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/netif"
	"github.com/hamed0406/downdetector/internal/probe"
)

const msgNoDowntime = "No downtime recorded yet."

type status struct {
	NetworkDown    bool       `json:"network_down"`
	Since          *time.Time `json:"since"`
	TrackedHosts   int        `json:"tracked_hosts"`
	RecordedEvents int        `json:"recorded_events"`
}

type hostRow struct {
	Host      string    `json:"host"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func newStatusCommand(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the network is down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st status
			if err := client().get(cmd.Context(), "/api/status", &st); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st, time.Now())
			return nil
		},
	}
}

func printStatus(w io.Writer, st status, now time.Time) {
	if st.NetworkDown && st.Since != nil {
		fmt.Fprintf(w, "Network: DOWN since %s (%s)\n",
			st.Since.Local().Format(time.RFC3339), humanize.RelTime(*st.Since, now, "ago", "from now"))
	} else {
		fmt.Fprintln(w, "Network: UP")
	}
	fmt.Fprintf(w, "Tracked hosts: %d\n", st.TrackedHosts)
	fmt.Fprintf(w, "Recorded events: %d\n", st.RecordedEvents)
}

func newHostsCommand(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "List tracked hosts and their latest outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []hostRow
			if err := client().get(cmd.Context(), "/api/hosts", &rows); err != nil {
				return err
			}
			printHosts(cmd.OutOrStdout(), rows, time.Now())
			return nil
		},
	}
}

func printHosts(w io.Writer, rows []hostRow, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tOUTCOME\tLAST SEEN\tMESSAGE")
	for _, r := range rows {
		outcome, seen := r.Outcome, "-"
		if outcome == "" {
			outcome = "pending"
		} else {
			seen = humanize.RelTime(r.Timestamp, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Host, outcome, seen, r.Message)
	}
	_ = tw.Flush()
}

func newEventsCommand(client func() *Client) *cobra.Command {
	var last bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List downtime intervals recorded since the daemon started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var evs []domain.DowntimeEvent
			if last {
				var ev domain.DowntimeEvent
				err := client().get(cmd.Context(), "/api/events/last", &ev)
				if errors.Is(err, ErrNotFound) {
					fmt.Fprintln(out, msgNoDowntime)
					return nil
				}
				if err != nil {
					return err
				}
				evs = []domain.DowntimeEvent{ev}
			} else if err := client().get(cmd.Context(), "/api/events", &evs); err != nil {
				return err
			}
			printEvents(out, evs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&last, "last", false, "Only show the most recent interval")
	return cmd
}

func printEvents(w io.Writer, evs []domain.DowntimeEvent) {
	if len(evs) == 0 {
		fmt.Fprintln(w, msgNoDowntime)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tDURATION")
	var total time.Duration
	for _, ev := range evs {
		total += ev.Duration
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			ev.Start.Local().Format(time.RFC3339), ev.End.Local().Format(time.RFC3339), ev.Duration.Round(time.Second))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%s intervals, %s total\n", humanize.Comma(int64(len(evs))), total.Round(time.Second))
}

func newObserveCommand(client func() *Client) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "observe <host> <message...>",
		Short: "Feed one line of probe output to the detector",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339Nano, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				ts = t
			}
			body := domain.Observation{Host: domain.HostID(args[0]), Message: strings.Join(args[1:], " "), Timestamp: ts}
			var resp struct {
				Outcome     domain.Outcome `json:"outcome"`
				NetworkDown bool           `json:"network_down"`
			}
			if err := client().post(cmd.Context(), "/api/observations", body, &resp); err != nil {
				return err
			}
			state := "UP"
			if resp.NetworkDown {
				state = "DOWN"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (network %s)\n", args[0], resp.Outcome, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Observation time (RFC3339), default now")
	return cmd
}

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message...>",
		Short: "Classify a line of ping output locally",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), probe.Classify(strings.Join(args, " ")))
			return nil
		},
	}
}

func newInterfacesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List local interfaces usable as PING_INTERFACE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ifs, err := netif.Active(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tADDRESSES\tMAC")
			for _, i := range ifs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", i.Name, strings.Join(i.Addrs, ","), i.MAC)
			}
			return tw.Flush()
		},
	}
}
