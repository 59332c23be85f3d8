package decoder

// FrameLength is the size of a manufacturer data frame after the company identifier.
const FrameLength = 24

const (
	DataFormat5 byte = 0x05
	DataFormat6 byte = 0x06
)

const formatOffset = 0

// Data format 5 (RAWv2) field offsets. Multi-byte fields are big-endian.
const (
	df5Temperature = 1
	df5Humidity    = 3
	df5Pressure    = 5
	df5AccelX      = 7
	df5AccelY      = 9
	df5AccelZ      = 11
	df5Power       = 13
	df5Movement    = 15
	df5Sequence    = 16
	df5Address     = 18
)

// The DF5 power field packs battery voltage in the upper 11 bits and TX power in the lower 5.
const (
	txPowerBits  = 5
	txPowerMask  = 1<<txPowerBits - 1
	batteryShift = txPowerBits
)

// Data format 6 field offsets.
const (
	df6Temperature = 1
	df6Humidity    = 3
	df6Pressure    = 5
	df6PM25        = 7
	df6CO2         = 9
	df6VOC         = 11
	df6NOx         = 12
	df6Sequence    = 15
	df6Flags       = 16
)

// Flag byte bits shared by DF6 frames and E1 log records.
const (
	flagCalibration = 1 << 0
	flagVOCLowBit   = 6
	flagNOxLowBit   = 7
)

// Raw "no reading" markers.
const (
	sentinelU16         uint16 = 0xFFFF
	sentinelTemperature uint16 = 0x7FFF
	sentinelNineBit     uint16 = 0x1FF
	sentinelLogTemp     int64  = -32768
)

// Legacy log channel codes.
const (
	legacyTemperature int64 = 0x30
	legacyHumidity    int64 = 0x31
	legacyPressure    int64 = 0x32
)

// Log record field positions. Legacy records have exactly legacyFieldCount fields,
// E1 records at least e1MinFieldCount.
const (
	recTag       = 0
	recChannel   = 1
	recReserved  = 2
	recTimestamp = 3
	recValue     = 4

	recE1Temperature = 4
	recE1Humidity    = 5
	recE1Pressure    = 6
	recE1PM25        = 7
	recE1CO2         = 8
	recE1VOC         = 9
	recE1NOx         = 10
	recE1Flags       = 11

	legacyFieldCount = 5
	e1MinFieldCount  = 12
)

// Legacy log packet: dest, src, op, u32 timestamp, u32 value.
const (
	legacyPacketLength = 11
	legacyEndMarker    = 0xFFFFFFFF
)
