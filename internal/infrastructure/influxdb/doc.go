// Package influxdb provides InfluxDB connectivity for fleet telemetry.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched writes, and health monitoring.
//
// # Measurements
//
//	fleet_sync    tags: kind, site_id   fields: total, in_sync, connected, disabled
//	fleet_report  tags: kind, id        fields: in_sync
//
// fleet_sync is written by the fleet auditor on every audit tick.
// fleet_report is written once per applied agent report.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.RecordSyncStatus("supervisor", "gw1", 4, 3, 4, 0)
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
