package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/rbac"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

const (
	// exportRowLimit caps one CSV export.
	exportRowLimit = 10000
	// exportTextLimit caps free-text cells so a single prompt cannot blow
	// up the file.
	exportTextLimit = 500
)

var exportHeader = []string{
	"ID", "Timestamp", "Model", "Status",
	"Input Tokens", "Output Tokens", "Total Tokens",
	"Latency (ms)", "Cost (USD)",
	"Prompt", "Response", "Error Message",
}

// truncateForExport caps free-text cells at exportTextLimit runes.
func truncateForExport(s string) string {
	runes := []rune(s)
	if len(runes) <= exportTextLimit {
		return s
	}
	return string(runes[:exportTextLimit])
}

func exportRow(t *models.Trace) []string {
	errMsg := ""
	if t.ErrorMessage != nil {
		errMsg = *t.ErrorMessage
	}
	return []string{
		fmt.Sprintf("%d", t.ID),
		t.Timestamp.UTC().Format(time.RFC3339),
		t.ModelName,
		string(t.Status),
		fmt.Sprintf("%d", t.InputTokens),
		fmt.Sprintf("%d", t.OutputTokens),
		fmt.Sprintf("%d", t.TotalTokens),
		fmt.Sprintf("%.2f", t.LatencyMs),
		t.CostUSD.StringFixed(6),
		truncateForExport(t.Prompt),
		truncateForExport(t.Response),
		truncateForExport(errMsg),
	}
}

// Export streams the caller's scoped traces as a CSV download, honoring the
// same filters as listing.
func (h *TracesHandler) Export(w http.ResponseWriter, r *http.Request) {
	scope := rbac.ScopeFor(IdentityFrom(r.Context()))

	traces, err := h.db.ExportTraces(r.Context(), scope, filterFromQuery(r), exportRowLimit)
	if err != nil {
		h.log.Error("failed to export traces", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export traces")
		return
	}

	filename := fmt.Sprintf("llm_traces_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		h.log.Error("csv write failed", zap.Error(err))
		return
	}
	for i := range traces {
		if err := cw.Write(exportRow(&traces[i])); err != nil {
			h.log.Error("csv write failed", zap.Error(err))
			return
		}
	}
	cw.Flush()
}
