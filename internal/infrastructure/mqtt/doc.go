// Package mqtt is fleetd's broker client, built on paho. Registry
// events go out and agent reports come in over the topics below.
//
// Every fleet entity has two topics keyed by its plural kind and ID:
//
//	graylogic/fleet/{kind}/{id}/event      fleetd -> subscribers (not retained)
//	graylogic/fleet/{kind}/{id}/reported   agent  -> fleetd
//
// Status lives on graylogic/system/status. Broker ACLs should let an
// agent publish only on its own reported topic; enable TLS
// (mqtt.broker.tls) outside the lab.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	err = client.Subscribe(mqtt.Topics{}.AllFleetReports(), 1, fleet.ReportHandler(registry))
package mqtt
