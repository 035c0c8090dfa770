package archive

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/maisoncleo/atelier-tracker/internal/production"
)

const unassigned = "non assigné"

// Stats counts completed items of archived orders per period, newest period first.
func (s *Service) Stats(ctx context.Context, period Period, loc *time.Location) ([]PeriodStats, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("unknown period %q", period)
	}
	archives, err := s.archives.List(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate(archives, period, loc), nil
}

func aggregate(archives []Archive, period Period, loc *time.Location) []PeriodStats {
	if loc == nil {
		loc = time.UTC
	}
	buckets := map[string]*PeriodStats{}
	for _, a := range archives {
		label := periodLabel(a.ArchivedAt.In(loc), period)
		for _, st := range a.Statuses {
			if st.Status != production.Done {
				continue
			}
			b, ok := buckets[label]
			if !ok {
				b = &PeriodStats{Period: label, ByType: map[string]int{}, ByWorker: map[string]int{}}
				buckets[label] = b
			}
			worker := unassigned
			if st.AssignedTo != nil && *st.AssignedTo != "" {
				worker = *st.AssignedTo
			}
			b.Total++
			b.ByType[st.ProductionType]++
			b.ByWorker[worker]++
		}
	}

	out := make([]PeriodStats, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out
}

func periodLabel(t time.Time, period Period) string {
	switch period {
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case Month:
		return t.Format("2006-01")
	default:
		return t.Format("2006")
	}
}

// ExportStats renders Stats as an XLSX workbook: one row per period and worker.
func (s *Service) ExportStats(ctx context.Context, period Period, loc *time.Location) ([]byte, error) {
	stats, err := s.Stats(ctx, period, loc)
	if err != nil {
		return nil, err
	}
	return statsWorkbook(stats)
}

func statsWorkbook(stats []PeriodStats) ([]byte, error) {
	const (
		periods = "Sheet1"
		workers = "Tricoteuses"
	)
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(workers); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(periods, "A1", &[]any{"Période", "Articles terminés", "Couture", "Maille"}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(workers, "A1", &[]any{"Période", "Tricoteuse", "Articles terminés"}); err != nil {
		return nil, err
	}

	workerRow := 2
	for i, p := range stats {
		row := []any{p.Period, p.Total, p.ByType[production.Couture], p.ByType[production.Maille]}
		if err := f.SetSheetRow(periods, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(p.ByWorker))
		for w := range p.ByWorker {
			names = append(names, w)
		}
		sort.Strings(names)
		for _, w := range names {
			if err := f.SetSheetRow(workers, fmt.Sprintf("A%d", workerRow), &[]any{p.Period, w, p.ByWorker[w]}); err != nil {
				return nil, err
			}
			workerRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
