package remote

// FieldMask marks which Record fields a settings-overlay sender actually
// wants applied, per spec.md §4.5's "remote control changes only the
// options explicitly named on its own command line."
type FieldMask uint32

const (
	MaskShowProgress FieldMask = 1 << iota
	MaskShowTimer
	MaskShowETA
	MaskShowFinETA
	MaskShowRate
	MaskShowAverageRate
	MaskShowBytes
	MaskShowBufferPct
	MaskRateLimit
	MaskBufferSize
	MaskSize
	MaskInterval
	MaskWidth
	MaskHeight
	MaskName
	MaskFormat
	MaskExtraDisplay
)
