package journal

import (
	"context"
	"fmt"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
)

// Report summarizes a session and the consistency of its entries.
type Report struct {
	Session          string
	Entries          int
	Inits            int
	Updates          int
	DumpUpdates      int
	LastSeq          int64
	FinalFingerprint string

	// Problems lists every inconsistency found, in seq order.
	Problems []string
}

// Consistent returns true if no problems were found.
func (r Report) Consistent() bool {
	return len(r.Problems) == 0
}

// Check walks a session in seq order and verifies it:
//   - every stored state hashes to its recorded fingerprint
//   - init and dumpUpdate entries did not change the fingerprint
//   - every entry's prev_fingerprint is the fingerprint before it,
//     starting from the session's initial fingerprint
//
// A session recorded from concurrent writers may legitimately interleave
// and report chain breaks.
func (j *Journal) Check(ctx context.Context, session string) (Report, error) {
	report := Report{Session: session}

	meta, err := j.ReadSession(ctx, session)
	if err != nil {
		return report, fmt.Errorf("check: %w", err)
	}

	entries, err := j.List(ctx, session)
	if err != nil {
		return report, fmt.Errorf("check: %w", err)
	}

	last := meta.InitialFingerprint
	for _, e := range entries {
		report.Entries++
		report.LastSeq = e.Seq

		switch e.Kind {
		case bus.KindInit:
			report.Inits++
		case bus.KindUpdate:
			report.Updates++
		case bus.KindDumpUpdate:
			report.DumpUpdates++
		}

		got, err := ir.Fingerprint(e.State)
		if err != nil {
			return report, fmt.Errorf("check seq %d: %w", e.Seq, err)
		}
		if got != e.Fingerprint {
			report.Problems = append(report.Problems,
				fmt.Sprintf("seq %d: state hashes to %s, recorded %s", e.Seq, got, e.Fingerprint))
		}
		if e.Kind != bus.KindUpdate && e.Fingerprint != e.PrevFingerprint {
			report.Problems = append(report.Problems,
				fmt.Sprintf("seq %d: %s changed fingerprint %s -> %s", e.Seq, e.Kind, e.PrevFingerprint, e.Fingerprint))
		}
		if e.PrevFingerprint != last {
			report.Problems = append(report.Problems,
				fmt.Sprintf("seq %d: chain break, prev %s but last was %s", e.Seq, e.PrevFingerprint, last))
		}
		last = e.Fingerprint
	}

	report.FinalFingerprint = last
	return report, nil
}
