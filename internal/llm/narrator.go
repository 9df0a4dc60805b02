// internal/llm/narrator.go
// Narasi ringkas hasil fitting decline; fallback ekstraktif bila LLM tidak tersedia

package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"dca-oilgas/internal/services"
)

type Narrative struct {
	Text   string `json:"text"`
	Source string `json:"source"` // "llm" | "extractive"
	Model  string `json:"model,omitempty"`
}

// Narrator membungkus Client opsional; Client nil -> selalu extractive.
type Narrator struct {
	Client Client
	Log    logrus.FieldLogger
}

const narratorSystem = `Anda adalah reservoir engineer.
- Jelaskan hasil decline curve analysis secara singkat (maks 5 kalimat).
- Gunakan hanya angka yang diberikan, jangan mengarang data.
- Sebut kualitas fit dan risiko (outlier, b > 1, mismatch besar) bila ada.`

func (n *Narrator) ExplainFit(ctx context.Context, fit *services.FitResult) Narrative {
	facts := fitFacts(fit)
	return n.narrate(ctx, facts)
}

func (n *Narrator) ExplainBatch(ctx context.Context, sum *services.BatchSummary) Narrative {
	return n.narrate(ctx, batchFacts(sum))
}

func (n *Narrator) narrate(ctx context.Context, facts string) Narrative {
	if n != nil && n.Client != nil {
		out, err := n.Client.Complete(ctx, narratorSystem, facts)
		if err == nil && strings.TrimSpace(out) != "" {
			return Narrative{Text: out, Source: "llm", Model: n.Client.Model()}
		}
		if n.Log != nil {
			n.Log.WithError(err).Warn("llm narrative failed, using extractive fallback")
		}
	}
	return Narrative{Text: facts, Source: "extractive"}
}

func fitFacts(fit *services.FitResult) string {
	if fit == nil {
		return "Tidak ada hasil fitting."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sumur %s: Qi %.2f pada %s, Di %.4f /bulan, b %.3f. ",
		fit.WellID, fit.Qi, fit.QiDate.Format("2006-01-02"), fit.Di, fit.B)
	fmt.Fprintf(&b, "Qe aktual %.2f vs fit %.2f (mismatch %.2f%%). ", fit.QeActual, fit.QeFit, fit.MismatchPct)
	fmt.Fprintf(&b, "Kumulatif aktual %.1f vs fit %.1f (selisih %.2f%%). ", fit.CumActualTotal, fit.CumFittedTotal, fit.CumDeltaPct)
	fmt.Fprintf(&b, "R² log %.3f", fit.Quality.RSquared)
	if n := len(fit.Quality.Outliers); n > 0 {
		fmt.Fprintf(&b, ", %d bulan outlier", n)
	}
	b.WriteString(".")
	if fit.B > 1 {
		b.WriteString(" Catatan: b > 1 (super-hiperbolik), hati-hati untuk ekstrapolasi jangka panjang.")
	}
	return b.String()
}

func batchFacts(sum *services.BatchSummary) string {
	if sum == nil {
		return "Tidak ada hasil batch."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %d sumur: %d ok, %d insufficient data, %d error.",
		len(sum.Rows), sum.OK, sum.Insufficient, sum.Failed)

	worst, worstPct := "", -1.0
	for _, r := range sum.Rows {
		if r.Status == services.StatusOK && !math.IsNaN(r.MismatchPct) && r.MismatchPct > worstPct {
			worst, worstPct = r.WellID, r.MismatchPct
		}
	}
	if worst != "" {
		fmt.Fprintf(&b, " Mismatch Qe terbesar: %s (%.2f%%).", worst, worstPct)
	}
	return b.String()
}
