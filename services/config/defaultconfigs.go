package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (main passes it to Service.Start)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "diag": {
    "buffer_size": 512,
    "trace_max": 128,
    "storage_offset": 0,
    "chunk_limit": 64,
    "timestamps": true,
    "heartbeat_s": 60,
    "backlog": 8
  },
  "bridge": {
    "transport": {"type": "uart", "uart": {"baud": 115200, "tx_pin": 4, "rx_pin": 5}}
  }
}`

const cfgPico2 = `{
  "diag": {
    "buffer_size": 2048,
    "trace_max": 256,
    "storage_offset": 256,
    "chunk_limit": 256,
    "heartbeat_s": 300
  }
}`

const cfgHost = `{
  "diag": {
    "buffer_size": 1024,
    "chunk_limit": 0,
    "heartbeat_s": 10
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico":  []byte(cfgPico),
	"pico2": []byte(cfgPico2),
	"host":  []byte(cfgHost),
}
