// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tamzrod/modbus-reader/internal/poller"
)

type writerImpl struct {
	plan  Plan
	sinks map[string]Sink
}

func New(plan Plan, sinks map[string]Sink) Writer {
	return &writerImpl{
		plan:  plan,
		sinks: sinks,
	}
}

// Write hands the batch to every sink. A failing sink does not stop the
// others; all failures are joined into one error.
func (w *writerImpl) Write(res poller.PollResult) error {
	// A cycle without a batch has nothing to deliver.
	if res.Err != nil {
		return nil
	}

	var errs []string

	for _, name := range sortedNames(w.sinks) {
		s := w.sinks[name]
		if s == nil {
			errs = append(errs, fmt.Sprintf("writer: missing sink %s", name))
			continue
		}
		if err := s.WriteBatch(w.plan.UnitID, res.At, res.Batch); err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: sink=%s unit=%s err=%v",
				name, w.plan.UnitID, err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
