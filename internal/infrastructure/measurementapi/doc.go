// Package measurementapi submits water temperature readings to the
// measurement collection API.
//
// Each reading is one request:
//
//	POST {base_url}/measurements
//	authorization: Bearer {api_token}
//	content-type: application/json
//
//	{"sensor_id": 7, "temperature": 13.14}
//
// The API answers 201 Created on success. Any other status is returned
// as a *StatusError.
package measurementapi
