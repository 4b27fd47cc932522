package stats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultFetchTimeout = 10 * time.Second

// Relay metric family names.
const (
	famSessionsActive     = "chatrelay_sessions_active"
	famSessionsTotal      = "chatrelay_sessions_total"
	famSessionDuration    = "chatrelay_session_duration_seconds"
	famBroadcasts         = "chatrelay_broadcasts_total"
	famDeliveriesEnqueued = "chatrelay_deliveries_enqueued_total"
	famSendErrors         = "chatrelay_send_errors_total"
	famFramesDropped      = "chatrelay_frames_dropped_total"
)

// Summary is a point-in-time view of the relay's counters.
type Summary struct {
	FetchedAt time.Time

	SessionsActive float64
	SessionsTotal  float64

	// SessionsEnded and MeanSessionSeconds come from the duration histogram.
	SessionsEnded      uint64
	MeanSessionSeconds float64

	// Broadcasts is keyed by event type ("update-users", "send-message").
	Broadcasts         map[string]float64
	DeliveriesEnqueued float64
	SendErrors         float64

	// FramesDropped is keyed by drop reason.
	FramesDropped map[string]float64
}

// authRoundTripper injects the admin API key into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	header string
	key    string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.header, t.key)
	return t.base.RoundTrip(req)
}

// NewClient returns the HTTP client used by Fetch. A non-empty key is sent
// in header on every request.
func NewClient(header, key string) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if key != "" {
		transport = &authRoundTripper{base: transport, header: header, key: key}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultFetchTimeout,
	}
}

// Fetch scrapes adminURL's /metrics endpoint and summarizes it.
func Fetch(ctx context.Context, client *http.Client, adminURL string) (*Summary, error) {
	url := strings.TrimRight(adminURL, "/") + "/metrics"
	mfs, err := fetchMetrics(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("stats: fetch %s: %w", url, err)
	}
	s := Summarize(mfs)
	s.FetchedAt = time.Now().UTC()
	return s, nil
}

// Summarize reduces parsed metric families to a Summary. Missing families
// read as zero.
func Summarize(mfs map[string]*dto.MetricFamily) *Summary {
	s := &Summary{
		SessionsActive:     sumFamily(mfs[famSessionsActive]),
		SessionsTotal:      sumFamily(mfs[famSessionsTotal]),
		Broadcasts:         sumByLabel(mfs[famBroadcasts], "event"),
		DeliveriesEnqueued: sumFamily(mfs[famDeliveriesEnqueued]),
		SendErrors:         sumFamily(mfs[famSendErrors]),
		FramesDropped:      sumByLabel(mfs[famFramesDropped], "reason"),
	}

	if mf := mfs[famSessionDuration]; mf != nil {
		var sum float64
		for _, m := range mf.GetMetric() {
			h := m.GetHistogram()
			s.SessionsEnded += h.GetSampleCount()
			sum += h.GetSampleSum()
		}
		if s.SessionsEnded > 0 {
			s.MeanSessionSeconds = sum / float64(s.SessionsEnded)
		}
	}
	return s
}

// Write renders s as aligned "name value" lines.
func (s *Summary) Write(w io.Writer) error {
	lines := [][2]string{
		{"sessions active", formatCount(s.SessionsActive)},
		{"sessions total", formatCount(s.SessionsTotal)},
		{"sessions ended", fmt.Sprintf("%d", s.SessionsEnded)},
		{"mean session", (time.Duration(s.MeanSessionSeconds * float64(time.Second))).Round(time.Millisecond).String()},
	}
	for _, k := range sortedKeys(s.Broadcasts) {
		lines = append(lines, [2]string{"broadcasts " + k, formatCount(s.Broadcasts[k])})
	}
	lines = append(lines,
		[2]string{"deliveries enqueued", formatCount(s.DeliveriesEnqueued)},
		[2]string{"send errors", formatCount(s.SendErrors)},
	)
	for _, k := range sortedKeys(s.FramesDropped) {
		lines = append(lines, [2]string{"frames dropped " + k, formatCount(s.FramesDropped[k])})
	}

	width := 0
	for _, l := range lines {
		if len(l[0]) > width {
			width = len(l[0])
		}
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-*s  %s\n", width, l[0], l[1]); err != nil {
			return err
		}
	}
	return nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition. A partial result with a
// parse warning still counts as success.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += value(m)
	}
	return total
}

// sumByLabel groups a family's values by one label.
func sumByLabel(mf *dto.MetricFamily, label string) map[string]float64 {
	out := make(map[string]float64)
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		key := ""
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				key = lp.GetValue()
				break
			}
		}
		out[key] += value(m)
	}
	return out
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatCount(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
