package train

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary prints the per-epoch metrics of a run as a table.
func RenderSummary(w io.Writer, result *Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Epoch", "Train Loss", "Train Acc", "Val Loss", "Val Acc", "Duration"})
	for _, e := range result.Epochs {
		t.AppendRow(table.Row{
			e.Epoch,
			fmt.Sprintf("%.4f", e.TrainLoss),
			fmt.Sprintf("%.2f%%", e.TrainAcc*100),
			fmt.Sprintf("%.4f", e.ValLoss),
			fmt.Sprintf("%.2f%%", e.ValAcc*100),
			e.Duration.Round(10 * time.Millisecond),
		})
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "run %s: best validation accuracy %.2f%%\n", result.RunID, result.BestAcc*100)
}
