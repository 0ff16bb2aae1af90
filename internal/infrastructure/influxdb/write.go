package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	// MeasurementFleetSync holds one sample per kind and site, written by
	// the fleet auditor.
	MeasurementFleetSync = "fleet_sync"

	// MeasurementFleetReport holds one sample per ingested agent report.
	MeasurementFleetReport = "fleet_report"
)

// unassignedSite tags entities that carry no site ID. Line protocol drops
// empty tag values.
const unassignedSite = "unassigned"

// RecordSyncStatus writes a fleet_sync sample.
//
// Tags are kind and site_id; fields are total, in_sync, connected and
// disabled. The write is non-blocking and batched.
func (c *Client) RecordSyncStatus(kind, siteID string, total, inSync, connected, disabled int) {
	c.writePoint(syncStatusPoint(kind, siteID, total, inSync, connected, disabled, time.Now()))
}

func syncStatusPoint(kind, siteID string, total, inSync, connected, disabled int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementFleetSync,
		map[string]string{
			"kind":    kind,
			"site_id": siteTag(siteID),
		},
		map[string]any{
			"total":     int64(total),
			"in_sync":   int64(inSync),
			"connected": int64(connected),
			"disabled":  int64(disabled),
		},
		ts,
	)
}

// RecordReport writes a fleet_report sample for one applied agent report.
func (c *Client) RecordReport(kind, id string, inSync bool) {
	c.writePoint(reportPoint(kind, id, inSync, time.Now()))
}

func reportPoint(kind, id string, inSync bool, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementFleetReport,
		map[string]string{
			"kind": kind,
			"id":   id,
		},
		map[string]any{
			"in_sync": inSync,
		},
		ts,
	)
}

func siteTag(siteID string) string {
	if siteID == "" {
		return unassignedSite
	}
	return siteID
}
