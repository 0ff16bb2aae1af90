package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fleet/internal/entity"
	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fleet/internal/shadow"
)

// reportTimeout bounds the store work for one agent report.
const reportTimeout = 5 * time.Second

// Report is the payload agents publish on
// graylogic/fleet/{kind}/{id}/reported.
type Report struct {
	Reported  map[string]any `json:"reported,omitempty"`
	Connected *bool          `json:"connected,omitempty"`
}

// ReportHandler returns an MQTT message handler that applies agent reports
// to the registry. Subscribe it to mqtt.Topics{}.AllFleetReports().
func ReportHandler(registry *Registry) func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		resource, id, ok := mqtt.ParseFleetReportTopic(topic)
		if !ok {
			return fmt.Errorf("%w: unexpected topic %q", ErrInvalidReport, topic)
		}
		kind, err := entity.KindFromResource(resource)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidReport, err)
		}
		report, err := ParseReport(payload)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		return registry.ApplyReport(ctx, kind, id, report.properties(), report.Connected)
	}
}

// ParseReport decodes an agent report. Integral JSON numbers become int64
// so they compare equal to operator-set values.
func ParseReport(payload []byte) (*Report, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var r Report
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	if r.Reported == nil && r.Connected == nil {
		return nil, fmt.Errorf("%w: empty report", ErrInvalidReport)
	}
	return &r, nil
}

func (r *Report) properties() shadow.Properties {
	if r.Reported == nil {
		return nil
	}
	return normalizeJSON(r.Reported).(shadow.Properties)
}

func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(shadow.Properties, len(t))
		for k, e := range t {
			out[k] = normalizeJSON(e)
		}
		return out
	case []any:
		return shadow.EncodeList(normalizeSlice(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

func normalizeSlice(items []any) []any {
	out := make([]any, len(items))
	for i, e := range items {
		out[i] = normalizeJSON(e)
	}
	return out
}
