package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/fallback/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current status of all configured sources",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/status", cfg.Server.Port))
	if err != nil {
		slog.Error("Failed to reach service", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var status map[string]map[string]orchestrator.SourceStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		slog.Error("Failed to decode status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "DATA TYPE\tSOURCE\tPRIORITY\tAVAILABLE\tFAILURES\tCAPABILITIES")

	dataTypes := make([]string, 0, len(status))
	for dt := range status {
		dataTypes = append(dataTypes, dt)
	}
	sort.Strings(dataTypes)

	for _, dt := range dataTypes {
		sources := make([]string, 0, len(status[dt]))
		for name := range status[dt] {
			sources = append(sources, name)
		}
		sort.Slice(sources, func(i, j int) bool {
			return status[dt][sources[i]].Priority < status[dt][sources[j]].Priority
		})
		for _, name := range sources {
			s := status[dt][name]
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%d\t%s\n",
				dt, name, s.Priority, s.Available, s.FailureCount,
				strings.Join(s.Capabilities, ","))
		}
	}
	_ = w.Flush()
}
