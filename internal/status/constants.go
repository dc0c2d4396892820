// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device: the last batch read every address.
const HealthOK uint16 = 1

// HealthError represents a device error state: no address was read.
const HealthError uint16 = 2

// HealthStale represents a partial batch: some addresses hold no fresh value.
const HealthStale uint16 = 3

// ---- ERROR CODES ----

// CodeGeneric is used when a failure carries no better code.
const CodeGeneric uint16 = 1

// CodeKindBase offsets error kinds so they never collide with Modbus
// exception codes (1..255).
const CodeKindBase uint16 = 0x100

// MaxSecondsInError caps the seconds counter.
const MaxSecondsInError = 65535
