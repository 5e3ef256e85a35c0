package invoices

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const numberPrefix = "NOTA-"

// NextNumber computes the next invoice number for the given date:
// NOTA-YYYYMMDD-NNNN with a four digit counter that resets per calendar day.
// Must run inside the finalization transaction; the store's max lookup takes
// a row lock so two concurrent finalizations cannot observe the same maximum.
func NextNumber(ctx context.Context, store TxStore, date time.Time, loc *time.Location) (string, error) {
	prefix := numberPrefix + date.In(loc).Format("20060102") + "-"

	max, err := store.MaxNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if max != "" {
		tail := strings.TrimPrefix(max, prefix)
		n, err := strconv.Atoi(tail)
		if err != nil {
			return "", fmt.Errorf("invoices: malformed invoice number %q", max)
		}
		seq = n + 1
	}
	if seq > 9999 {
		return "", fmt.Errorf("invoices: daily number space exhausted for %s", prefix)
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
