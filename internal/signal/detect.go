package signal

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gyeh/fraud-signals/internal/catalog"
)

// evidenceDate renders an optional date for evidence output; nil stays nil
// so the JSON carries an explicit null.
func evidenceDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

// monthKey formats a Month for use inside composite lexicographic sort keys.
func monthKey(m catalog.Month) string {
	return fmt.Sprintf("%06d", int(m))
}

// parseMonthKey inverts monthKey.
func parseMonthKey(s string) (catalog.Month, error) {
	n, err := strconv.Atoi(s)
	return catalog.Month(n), err
}

// byOverpaymentDesc sorts signals by estimated overpayment descending,
// ties broken by NPI ascending for determinism.
func byOverpaymentDesc(signals []Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].EstimatedOverpayment != signals[j].EstimatedOverpayment {
			return signals[i].EstimatedOverpayment > signals[j].EstimatedOverpayment
		}
		return signals[i].NPI < signals[j].NPI
	})
}
