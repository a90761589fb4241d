package simulator

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// AuditReport lists every place the server disagrees with the ledger.
type AuditReport struct {
	QuestionsChecked int
	TagsChecked      int
	Mismatches       []string
}

func (r *AuditReport) OK() bool { return len(r.Mismatches) == 0 }

func (r *AuditReport) addf(format string, args ...interface{}) {
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}

type tagPage struct {
	Items []struct {
		Name      string `json:"name"`
		Questions int    `json:"questions"`
	} `json:"items"`
	IsNext bool `json:"isNext"`
}

// Audit reads every simulated question and tag back through the API and
// compares counters against the ledger.
func (s *Simulator) Audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}

	for _, q := range s.questions {
		var got questionResponse
		if err := s.makeRequest(ctx, "GET", "/questions/"+q.ID.String(), "", nil, &got); err != nil {
			return nil, fmt.Errorf("read question %s: %w", q.ID, err)
		}
		report.QuestionsChecked++

		up, down := s.ledger.Counts(q.ID)
		if got.Upvotes != up || got.Downvotes != down {
			report.addf("question %s: counters %d/%d, ledger %d/%d", q.ID, got.Upvotes, got.Downvotes, up, down)
		}

		names := make([]string, 0, len(got.TagList))
		for _, t := range got.TagList {
			names = append(names, strings.ToLower(t.Name))
		}
		sort.Strings(names)
		if want := s.ledger.Tags(q.ID); strings.Join(names, ",") != strings.Join(want, ",") {
			report.addf("question %s: tags %v, ledger %v", q.ID, names, want)
		}
	}

	usage := s.ledger.TagUsage()
	seen := make(map[string]bool)
	for page := 1; ; page++ {
		var tags tagPage
		endpoint := fmt.Sprintf("/tags?filter=name&pageSize=100&page=%d&query=%s", page, url.QueryEscape("s"+s.runID))
		if err := s.makeRequest(ctx, "GET", endpoint, "", nil, &tags); err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		for _, t := range tags.Items {
			name := strings.ToLower(t.Name)
			seen[name] = true
			report.TagsChecked++
			if t.Questions < 0 {
				report.addf("tag %s: negative count %d", name, t.Questions)
			}
			if t.Questions != usage[name] {
				report.addf("tag %s: count %d, ledger %d", name, t.Questions, usage[name])
			}
		}
		if !tags.IsNext {
			break
		}
	}
	for name, n := range usage {
		if n > 0 && !seen[name] {
			report.addf("tag %s: missing, ledger %d", name, n)
		}
	}

	if report.OK() {
		s.logger.Info("Audit passed",
			zap.Int("questions", report.QuestionsChecked),
			zap.Int("tags", report.TagsChecked),
		)
	} else {
		s.logger.Error("Audit found mismatches", zap.Strings("mismatches", report.Mismatches))
	}
	return report, nil
}
