package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/srediag/plugin-status/api"
	"github.com/srediag/plugin-status/pkg/health"
	"github.com/srediag/plugin-status/pkg/host"
	"github.com/srediag/plugin-status/plugins"
)

// errUnhealthy makes the process exit non-zero after the reports are printed.
var errUnhealthy = errors.New("one or more plugins reported a failing status")

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func styleState(healthy bool, s string) string {
	if healthy {
		return okStyle.Render(s)
	}
	return failStyle.Render(s)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	selected, err := plugins.Lookup(uniqueNames(args)...)
	if err != nil {
		return err
	}
	h, err := host.New(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Load(selected...); err != nil {
		h.Logger().Warn(err.Error())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, err := collect(ctx, h, selected)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else if err := health.RenderText(out, reports, styleState); err != nil {
		return err
	}

	for _, r := range reports {
		if !r.Healthy {
			return errUnhealthy
		}
	}
	return nil
}

// uniqueNames drops repeated plugin names, keeping first-seen order.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func collect(ctx context.Context, h *host.Host, selected []api.Plugin) ([]*api.Report, error) {
	reports := make([]*api.Report, 0, len(selected))
	for _, p := range selected {
		rep, err := h.Status(ctx, p.Name())
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
