// Package influxdb writes decoded measurements to InfluxDB.
//
// Both server generations are supported:
//
//	influxdb   1.x  POST {base_url}/write?db={db}, basic auth
//	influxdb2  2.x  POST {base_url}/api/v2/write?org={org}&bucket={bucket}, token auth
//
// The 2.x path uses the official influxdb-client-go blocking write API.
// When both are configured, 2.x wins.
//
// Points are sent as one line of line protocol per measurement with
// tags and fields sorted by key, so identical input always produces an
// identical request body:
//
//	temperature,dev_eui=0004A30B001F1A2B,sensor_id=7,sensor_type=dragino airtime_ms=205i,voltage=2.885,water_temp=26.10
//
// Usage:
//
//	sink, err := influxdb.New(cfg, httpClient)
//	if err != nil {
//	    // influxdb.ErrNotConfigured: no time-series sink
//	}
//	defer sink.Close()
//	err = sink.Write(ctx, tags, fields)
package influxdb
