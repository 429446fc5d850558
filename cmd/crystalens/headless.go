// ABOUTME: Headless subcommands: run (create and follow a run), attach (follow an existing run), plots (list artifacts).
// ABOUTME: Events are printed as classified lines or JSON objects as they stream in.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/crystalens/gallery"
	"github.com/2389-research/crystalens/logging"
	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/stream"
)

// followOptions controls how a stream is printed.
type followOptions struct {
	jsonOut  bool
	filter   runs.Category
	quiet    bool
	untilEnd bool // keep reading after a done/error event
}

func newRunCmd(c *cli) *cobra.Command {
	var opts followOptions
	var category string
	cmd := &cobra.Command{
		Use:   "run <prompt>...",
		Short: "Start a run and stream its events to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseFilter(category, &opts); err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("prompt must not be empty")
			}
			id, err := api.CreateRun(cmd.Context(), prompt)
			c.metrics.RunCreated(err == nil)
			if err != nil {
				return fmt.Errorf("create run: %w", err)
			}
			if !opts.jsonOut {
				fmt.Fprintf(c.errOut, "run %s\n", id)
			}
			_, err = c.follow(cmd.Context(), api, id, opts)
			return err
		},
	}
	addFollowFlags(cmd, &opts, &category)
	return cmd
}

func newAttachCmd(c *cli) *cobra.Command {
	var opts followOptions
	var category string
	cmd := &cobra.Command{
		Use:   "attach <run-id>",
		Short: "Stream the events of an existing run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseFilter(category, &opts); err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			_, err = c.follow(cmd.Context(), api, runapi.RunID(args[0]), opts)
			return err
		},
	}
	addFollowFlags(cmd, &opts, &category)
	return cmd
}

func newPlotsCmd(c *cli) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "plots <run-id>",
		Short: "Wait for a run to finish and list its plot URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			events, err := c.follow(cmd.Context(), api, runapi.RunID(args[0]), followOptions{quiet: true})
			if err != nil {
				return err
			}
			return printPlots(c.out, api, gallery.FromEvents(events), jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print a JSON array of {path, name, url}")
	return cmd
}

func addFollowFlags(cmd *cobra.Command, opts *followOptions, category *string) {
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print one JSON object per event")
	cmd.Flags().StringVar(category, "category", "", "only print events of this category (agent, calls, responses, plots)")
	cmd.Flags().BoolVar(&opts.untilEnd, "until-close", false, "keep reading after done/error until the server closes the stream")
}

func parseFilter(raw string, opts *followOptions) error {
	if raw == "" {
		return nil
	}
	c, err := runs.ParseCategory(raw)
	if err != nil {
		return err
	}
	opts.filter = c
	return nil
}

// follow subscribes to id and prints events until the run ends, the stream
// closes, or ctx is cancelled. It returns every event received.
func (c *cli) follow(ctx context.Context, api *runapi.Client, id runapi.RunID, opts followOptions) ([]runs.Event, error) {
	sub := stream.New(c.dialer, api.StreamURL(id), string(id),
		stream.WithLogger(logging.Subsystem(c.logger, "stream")),
		stream.WithMetrics(c.metrics))
	defer sub.Close()
	if err := sub.Start(ctx); err != nil {
		return nil, err
	}

	printed := 0
	drain := func() bool {
		ended := false
		for _, evt := range sub.Since(printed) {
			if !opts.quiet {
				printEvent(c.out, evt, opts)
			}
			if evt.Type.IsTerminal() {
				ended = true
			}
			printed++
		}
		return ended && !opts.untilEnd
	}

	for {
		select {
		case <-sub.Updates():
			if drain() {
				return sub.Events(), nil
			}
		case <-sub.Done():
			drain()
			return sub.Events(), sub.Err()
		case <-ctx.Done():
			return sub.Events(), ctx.Err()
		}
	}
}

type eventLine struct {
	Type     runs.EventType  `json:"type"`
	Category string          `json:"category"`
	Author   string          `json:"author,omitempty"`
	Text     string          `json:"text,omitempty"`
	Call     json.RawMessage `json:"function_call,omitempty"`
	Response json.RawMessage `json:"function_response,omitempty"`
	Plots    []string        `json:"plots,omitempty"`
}

// printEvent writes evt as one line. Unclassified events are printed only
// in JSON mode, where they still carry their type.
func printEvent(w io.Writer, evt runs.Event, opts followOptions) {
	cat := runs.Classify(evt)
	if opts.filter != runs.CategoryNone && cat != opts.filter {
		return
	}
	card := runs.Display(evt)

	if opts.jsonOut {
		line := eventLine{Type: evt.Type, Category: cat.String(), Author: card.Author, Text: card.Text}
		if card.Call != "" {
			line.Call = json.RawMessage(card.Call)
		}
		if card.Response != "" {
			line.Response = json.RawMessage(card.Response)
		}
		for _, a := range runs.PlotArtifacts(evt) {
			line.Plots = append(line.Plots, string(a))
		}
		data, err := json.Marshal(line)
		if err != nil {
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}

	if evt.Type.IsTerminal() {
		fmt.Fprintf(w, "[%s]\n", evt.Type)
		return
	}
	if cat == runs.CategoryNone {
		return
	}
	author := card.Author
	if author == "" {
		author = "-"
	}
	var body string
	switch cat {
	case runs.CategoryCalls:
		body = oneLine(card.Call)
	case runs.CategoryResponses:
		body = oneLine(card.Response)
	case runs.CategoryPlots:
		var names []string
		for _, a := range runs.PlotArtifacts(evt) {
			names = append(names, a.Name())
		}
		body = strings.Join(names, ", ")
	default:
		body = oneLine(card.Collapsed().Text)
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", cat, author, body)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func printPlots(w io.Writer, api *runapi.Client, plots []runs.PlotArtifact, jsonOut bool) error {
	if jsonOut {
		type plot struct {
			Path string `json:"path"`
			Name string `json:"name"`
			URL  string `json:"url"`
		}
		out := make([]plot, 0, len(plots))
		for _, a := range plots {
			out = append(out, plot{Path: string(a), Name: a.Name(), URL: api.ArtifactURL(string(a))})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if len(plots) == 0 {
		fmt.Fprintln(w, gallery.EmptyMessage)
		return nil
	}
	for _, a := range plots {
		fmt.Fprintf(w, "%s\t%s\n", a.Name(), api.ArtifactURL(string(a)))
	}
	return nil
}
