// Package poller walks the fixed channel catalogue once per poll cycle,
// issues one session request per channel, scales and formats each reply,
// and emits the resulting datagram to a sink. Grounded structurally on the
// teacher's poll-then-publish shape in internal/hub (collect, then hand off
// to a single downstream consumer), generalised here to a request-driven
// walk instead of a broadcast.
package poller

// ChannelSpec is one entry of the fixed, ordered channel catalogue. It is
// plain configuration data, not protocol state: the 19 entries below are
// reproduced verbatim from the target device's parameter map.
type ChannelSpec struct {
	IDHigh     byte
	IDLow      byte
	ChannelID  int
	Name       string
	Unit       string
	Multiplier float64
}

// Catalogue is the fixed, ordered 19-entry channel list. Index 0 ("Power SW
// version") is the integrity-gate channel and is excluded from the emitted
// datagram body; indices 1-18 make up the 18 published values.
var Catalogue = []ChannelSpec{
	{IDHigh: 0x03, IDLow: 0x42, ChannelID: 834, Name: "Power SW version", Unit: "", Multiplier: 1},
	{IDHigh: 0x00, IDLow: 0x01, ChannelID: 1, Name: "Output Freq", Unit: "Hz", Multiplier: 0.01},
	{IDHigh: 0x00, IDLow: 0x19, ChannelID: 25, Name: "Freq Ref.", Unit: "Hz", Multiplier: 0.01},
	{IDHigh: 0x00, IDLow: 0x02, ChannelID: 2, Name: "Motor shaft speed", Unit: "rpm", Multiplier: 1},
	{IDHigh: 0x00, IDLow: 0x03, ChannelID: 3, Name: "Motor Current", Unit: "A", Multiplier: 0.01},
	{IDHigh: 0x00, IDLow: 0x04, ChannelID: 4, Name: "Motor Torque", Unit: "%", Multiplier: 0.1},
	{IDHigh: 0x00, IDLow: 0x05, ChannelID: 5, Name: "Motor Power", Unit: "%", Multiplier: 0.1},
	{IDHigh: 0x00, IDLow: 0x06, ChannelID: 6, Name: "Motor Voltage", Unit: "V", Multiplier: 0.1},
	{IDHigh: 0x00, IDLow: 0x09, ChannelID: 9, Name: "Motor Temperature", Unit: "°C", Multiplier: 1},
	{IDHigh: 0x00, IDLow: 0x07, ChannelID: 7, Name: "DC-link Voltage", Unit: "V", Multiplier: 1},
	{IDHigh: 0x00, IDLow: 0x08, ChannelID: 8, Name: "Unit Temperature", Unit: "°C", Multiplier: 1},
	{IDHigh: 0x07, IDLow: 0x21, ChannelID: 1825, Name: "Board Temp", Unit: "°C", Multiplier: 1},
	{IDHigh: 0x07, IDLow: 0x6B, ChannelID: 1899, Name: "Service counter", Unit: "h", Multiplier: 1},
	{IDHigh: 0x00, IDLow: 0x0E, ChannelID: 14, Name: "Reservoir Vacuum Level", Unit: "%", Multiplier: 1},
	{IDHigh: 0x03, IDLow: 0x3B, ChannelID: 827, Name: "MWh Counter", Unit: "MW", Multiplier: 0.001},
	{IDHigh: 0x03, IDLow: 0x3C, ChannelID: 828, Name: "Power On Time:Days", Unit: "Days", Multiplier: 1},
	{IDHigh: 0x03, IDLow: 0x3D, ChannelID: 829, Name: "Power On Time:Hours", Unit: "Hours", Multiplier: 1},
	{IDHigh: 0x03, IDLow: 0x48, ChannelID: 840, Name: "Unit Run Time:Days", Unit: "Days", Multiplier: 1},
	{IDHigh: 0x03, IDLow: 0x49, ChannelID: 841, Name: "Unit Run Time:Hours", Unit: "Hours", Multiplier: 1},
}

// reservoirVacuumChannelID is the one channel with a reinterpreted wire
// value: the device reports a raw percentage, but the published quantity
// is a millibar offset from -1000.
const reservoirVacuumChannelID = 14
