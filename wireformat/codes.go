package wireformat

// Opcodes of the wire format. Each encoded object starts with one code byte;
// packed forms fold a small length or integer into the code itself.
const (
	codePriorityCachePackedStart = 0x80
	codePriorityCachePackedEnd   = 0xA0
	codeStructCachePackedStart   = 0xA0
	codeStructCachePackedEnd     = 0xB0

	codeLongArray    = 0xB0
	codeDoubleArray  = 0xB1
	codeBooleanArray = 0xB2
	codeIntArray     = 0xB3
	codeFloatArray   = 0xB4
	codeObjectArray  = 0xB5

	codeMap  = 0xC0
	codeSet  = 0xC1
	codeUUID = 0xC3
	codeURI  = 0xC5
	codeInst = 0xC8
	codeSym  = 0xC9
	codeKey  = 0xCA

	codeGetPriorityCache = 0xCC
	codePutPriorityCache = 0xCD
	codePrecache         = 0xCE
	codeFooter           = 0xCF

	codeBytesPackedLengthStart  = 0xD0
	codeBytes                   = 0xD8
	codeBytesChunk              = 0xD9
	codeStringPackedLengthStart = 0xDA
	codeString                  = 0xE2
	codeStringChunk             = 0xE3
	codeListPackedLengthStart   = 0xE4
	codeList                    = 0xEC
	codeBeginClosedList         = 0xED
	codeBeginOpenList           = 0xEE
	codeStructType              = 0xEF
	codeStruct                  = 0xF0
	codeMeta                    = 0xF1
	codeAny                     = 0xF4
	codeTrue                    = 0xF5
	codeFalse                   = 0xF6
	codeNull                    = 0xF7
	codeInt                     = 0xF8
	codeFloat                   = 0xF9
	codeDouble                  = 0xFA
	codeDouble0                 = 0xFB
	codeDouble1                 = 0xFC
	codeEndCollection           = 0xFD
	codeResetCaches             = 0xFE

	codeIntPacked1Start = 0xFF
	codeIntPacked2Start = 0x50
	codeIntPacked3Start = 0x68
	codeIntPacked4Start = 0x72
	codeIntPacked5Start = 0x76
	codeIntPacked6Start = 0x7A
	codeIntPacked7Start = 0x7E
)

// Packed-length ranges.
const (
	bytesPackedLengthEnd  = 8
	stringPackedLengthEnd = 8
	listPackedLengthEnd   = 8
	structCacheSize       = codeStructCachePackedEnd - codeStructCachePackedStart
)

// FooterMagic opens a stream footer.
const FooterMagic uint32 = 0xCFCFCFCF

// Ext tags produced when decoding the format's built-in extended types.
const (
	TagSet  = "set"
	TagUUID = "uuid"
	TagURI  = "uri"
	TagKey  = "key"
	TagSym  = "sym"
)
